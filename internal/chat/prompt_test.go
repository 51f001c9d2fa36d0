package chat

import (
	"strings"
	"testing"

	"noddy-ai-backend/internal/provider"
)

func TestBuildMessageOrder(t *testing.T) {
	a := NewAssembler(10)
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello!"},
	}

	messages := a.Build("some context", history, "how are you?")

	if len(messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(messages))
	}
	if messages[0].Role != provider.RoleSystem {
		t.Fatal("first message must be the persona")
	}
	if messages[1].Content != "hi" || messages[2].Content != "hello!" {
		t.Fatal("history must keep its relative order")
	}
	last := messages[len(messages)-1]
	if last.Role != provider.RoleUser || last.Content != "how are you?" {
		t.Fatalf("the new turn must come last, got %+v", last)
	}
}

func TestBuildContextOnlyWhenPresent(t *testing.T) {
	a := NewAssembler(10)

	with := a.Build("The quota resets every day at midnight UTC.", nil, "when?")
	if !strings.Contains(with[0].Content, "The quota resets every day at midnight UTC.") {
		t.Fatal("retrieved context must be appended to the persona")
	}

	// An empty context block is never sent.
	without := a.Build("   ", nil, "when?")
	if strings.Contains(without[0].Content, "context") {
		t.Fatalf("empty context must be omitted entirely, got %q", without[0].Content)
	}
	if without[0].Content != NoddyPersona {
		t.Fatal("system message should be the bare persona without context")
	}
}

func TestBuildTruncatesOldHistory(t *testing.T) {
	a := NewAssembler(3)
	var history []Turn
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		history = append(history, Turn{Role: "user", Content: content})
	}

	messages := a.Build("", history, "latest")

	// persona + 3 most recent turns + new turn
	if len(messages) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(messages))
	}
	if messages[1].Content != "three" {
		t.Fatalf("oldest surviving turn should be 'three', got %q", messages[1].Content)
	}
}

func TestNormalizeRole(t *testing.T) {
	cases := map[string]string{
		"assistant": provider.RoleAssistant,
		"AI":        provider.RoleAssistant,
		"bot":       provider.RoleAssistant,
		"model":     provider.RoleAssistant,
		"system":    provider.RoleSystem,
		"user":      provider.RoleUser,
		"human":     provider.RoleUser,
		"":          provider.RoleUser,
	}
	for in, want := range cases {
		if got := normalizeRole(in); got != want {
			t.Errorf("normalizeRole(%q) = %q, want %q", in, got, want)
		}
	}
}
