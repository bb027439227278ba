package llm

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	aoption "github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicProvider struct {
	client anthropic.Client
}

func newAnthropicProvider(baseURL string, apiKey string) (*anthropicProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	opts := []aoption.RequestOption{aoption.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, aoption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &anthropicProvider{client: anthropic.NewClient(opts...)}, nil
}

func (p *anthropicProvider) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (ChatResult, error) {
	if p == nil {
		return ChatResult{}, errors.New("nil provider")
	}
	if err := validateRequest(req); err != nil {
		return ChatResult{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(strings.TrimSpace(req.Model)),
		MaxTokens: maxOutputTokens(req),
		Messages:  buildAnthropicMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}
	if system := collectSystemText(req.SystemPrompt, req.Messages); system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(params.Messages) == 0 {
		return ChatResult{}, errors.New("no user or assistant messages")
	}

	stream := p.client.Messages.NewStreaming(ctx, params)
	msg := anthropic.Message{}
	var textBuf strings.Builder

	for stream.Next() {
		event := stream.Current()
		if err := msg.Accumulate(event); err != nil {
			return ChatResult{}, err
		}
		if variant, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent); ok {
			if delta, ok := variant.Delta.AsAny().(anthropic.TextDelta); ok && delta.Text != "" {
				textBuf.WriteString(delta.Text)
				emitDelta(onDelta, delta.Text)
			}
		}
	}
	if err := stream.Err(); err != nil {
		return ChatResult{}, err
	}

	text := textBuf.String()
	if strings.TrimSpace(text) == "" {
		for _, block := range msg.Content {
			if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
				text = tb.Text
				break
			}
		}
	}

	return ChatResult{
		Text:         text,
		FinishReason: mapAnthropicStopReason(msg.StopReason),
		InputTokens:  msg.Usage.InputTokens,
		OutputTokens: msg.Usage.OutputTokens,
	}, nil
}

// buildAnthropicMessages drops system entries; those are carried via the
// top-level system field.
func buildAnthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		txt := strings.TrimSpace(msg.Content)
		if txt == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case "system":
			continue
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(txt)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(txt)))
		}
	}
	return out
}

func collectSystemText(systemPrompt string, messages []Message) string {
	parts := make([]string, 0, 2)
	if s := strings.TrimSpace(systemPrompt); s != "" {
		parts = append(parts, s)
	}
	for _, msg := range messages {
		if strings.ToLower(strings.TrimSpace(msg.Role)) != "system" {
			continue
		}
		if txt := strings.TrimSpace(msg.Content); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n\n")
}

func mapAnthropicStopReason(reason anthropic.StopReason) string {
	switch strings.TrimSpace(strings.ToLower(string(reason))) {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	case "refusal":
		return "content_filter"
	default:
		return "unknown"
	}
}
