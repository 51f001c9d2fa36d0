package chat

import (
	"context"
	"errors"
	"fmt"

	"noddy-ai-backend/internal/logger"
	"noddy-ai-backend/internal/provider"
	"noddy-ai-backend/internal/quota"
	"noddy-ai-backend/internal/rag"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// Request is one chat turn. Identity is the quota key; history is supplied
// by the caller on every call.
type Request struct {
	Identity string
	Message  string
	History  []Turn
	Model    string
}

// Result carries the answer plus the ordered trace of reasoning steps. The
// trace is purely observational — it never affects control flow. Denied is
// set when the quota ledger refused the turn; Response then holds the
// apology message.
type Result struct {
	Response string
	Thoughts []string
	Denied   bool
}

// Orchestrator coordinates one turn: admission check, retrieval, prompt
// assembly, dispatch, usage recording. It holds no per-conversation state;
// the ledger and index are process-wide shared collaborators.
type Orchestrator struct {
	ledger    *quota.Ledger
	retriever *rag.Retriever
	router    *provider.Router
	client    *provider.Client
	assembler *Assembler
}

func NewOrchestrator(ledger *quota.Ledger, retriever *rag.Retriever, router *provider.Router, client *provider.Client, assembler *Assembler) *Orchestrator {
	return &Orchestrator{
		ledger:    ledger,
		retriever: retriever,
		router:    router,
		client:    client,
		assembler: assembler,
	}
}

// Respond runs the turn to completion. Only configuration and upstream
// failures return an error; retrieval problems degrade to an uncontexted
// answer and quota denial is a normal Result with Denied set.
func (o *Orchestrator) Respond(ctx context.Context, req Request) (Result, error) {
	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "chat.respond")
	defer span.End()
	span.SetAttributes(attribute.String("chat.model", req.Model))

	var thoughts []string
	think := func(format string, args ...any) {
		thoughts = append(thoughts, fmt.Sprintf(format, args...))
	}

	decision := o.ledger.Admit(req.Identity)
	if !decision.Allowed {
		think("Daily chat quota reached for this key, politely declining.")
		span.SetAttributes(attribute.Bool("chat.quota_denied", true))
		return Result{Response: decision.Message, Thoughts: thoughts, Denied: true}, nil
	}

	think("Searching my memory for anything related...")
	retrieved := o.retriever.Retrieve(ctx, req.Message)
	if retrieved.Empty() {
		think("No memory fragments found (%s), answering from general knowledge.", retrieved.Note)
	} else {
		think("Found %d relevant fragments from %d source(s).", retrieved.Count, len(retrieved.Sources))
	}
	span.SetAttributes(attribute.Int("chat.context_fragments", retrieved.Count))

	messages := o.assembler.Build(retrieved.Text, req.History, req.Message)
	think("Assembled %d messages for the model.", len(messages))

	desc, warnings, err := o.router.Resolve(req.Model)
	for _, w := range warnings {
		think("Heads up: %s.", w)
		logger.Warn("provider fallback", "detail", w)
	}
	if err != nil {
		var confErr *provider.ConfigurationError
		if errors.As(err, &confErr) {
			logger.Error("provider not configured", "provider", confErr.Provider)
		}
		return Result{Thoughts: thoughts}, err
	}

	think("Sending the conversation to %s...", desc.Name)
	reply, usage, err := o.client.Chat(ctx, desc, req.Model, messages)
	if err != nil {
		// Failed upstream calls are not recorded: no tokens were consumed.
		return Result{Thoughts: thoughts}, err
	}

	o.ledger.Record(req.Identity, usage.InputTokens, usage.OutputTokens)
	think("Got an answer back (%d tokens in, %d out). %d chats left today.",
		usage.InputTokens, usage.OutputTokens, decision.Remaining)

	span.SetAttributes(
		attribute.Int("chat.input_tokens", usage.InputTokens),
		attribute.Int("chat.output_tokens", usage.OutputTokens),
	)
	return Result{Response: reply, Thoughts: thoughts}, nil
}
