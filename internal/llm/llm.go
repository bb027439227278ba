// Package llm adapts hosted model providers to a single streaming chat
// interface. Tutoring turns are text-only; provider adapters surface text
// deltas as they arrive so the API layer can forward them to the browser.
package llm

import (
	"context"
	"errors"
	"strings"
)

const defaultMaxOutputTokens = 4096

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model           string
	SystemPrompt    string
	Messages        []Message
	MaxOutputTokens int64
	Temperature     *float64
}

type ChatResult struct {
	Text         string
	FinishReason string
	InputTokens  int64
	OutputTokens int64
}

// Provider streams one chat turn. onDelta is invoked for each text fragment
// in arrival order; the full text is also returned in the result.
type Provider interface {
	StreamChat(ctx context.Context, req ChatRequest, onDelta func(text string)) (ChatResult, error)
}

func validateRequest(req ChatRequest) error {
	if strings.TrimSpace(req.Model) == "" {
		return errors.New("missing model")
	}
	if len(req.Messages) == 0 {
		return errors.New("missing messages")
	}
	return nil
}

func maxOutputTokens(req ChatRequest) int64 {
	if req.MaxOutputTokens > 0 {
		return req.MaxOutputTokens
	}
	return defaultMaxOutputTokens
}

func emitDelta(onDelta func(string), text string) {
	if onDelta == nil || text == "" {
		return
	}
	onDelta(text)
}
