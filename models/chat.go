package models

import "noddy-ai-backend/internal/chat"

// ChatRequest is the chat boundary payload. History is the caller-owned
// conversation state, replayed on every call.
type ChatRequest struct {
	Message string      `json:"message" binding:"required,min=1,max=4000"`
	History []chat.Turn `json:"history"`
	Model   string      `json:"model"`
}

// ChatResponse carries the answer plus the rendered reasoning trace.
type ChatResponse struct {
	Response string   `json:"response"`
	Thoughts []string `json:"thoughts"`
}

// IngestRequest is the ingestion boundary payload: a document name plus its
// extracted plain text. Binary-format extraction happens upstream of this API.
type IngestRequest struct {
	Name string `json:"name" binding:"required"`
	Text string `json:"text" binding:"required"`
}

// IngestResponse reports how many chunks were created for the document.
type IngestResponse struct {
	Name   string `json:"name"`
	Chunks int    `json:"chunks"`
}
