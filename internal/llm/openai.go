package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/openai/openai-go"
	ooption "github.com/openai/openai-go/option"
	oresponses "github.com/openai/openai-go/responses"
	oshared "github.com/openai/openai-go/shared"
)

type openAIProvider struct {
	client openai.Client
}

func newOpenAIProvider(baseURL string, apiKey string) (*openAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing provider api key")
	}
	opts := []ooption.RequestOption{ooption.WithAPIKey(strings.TrimSpace(apiKey))}
	if strings.TrimSpace(baseURL) != "" {
		opts = append(opts, ooption.WithBaseURL(strings.TrimSpace(baseURL)))
	}
	return &openAIProvider{client: openai.NewClient(opts...)}, nil
}

func (p *openAIProvider) StreamChat(ctx context.Context, req ChatRequest, onDelta func(string)) (ChatResult, error) {
	if p == nil {
		return ChatResult{}, errors.New("nil provider")
	}
	if err := validateRequest(req); err != nil {
		return ChatResult{}, err
	}

	params := oresponses.ResponseNewParams{
		Model:           oshared.ResponsesModel(strings.TrimSpace(req.Model)),
		MaxOutputTokens: openai.Int(maxOutputTokens(req)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	items, instructions := buildOpenAIInput(req.SystemPrompt, req.Messages)
	if len(items) == 0 {
		return ChatResult{}, errors.New("no user or assistant messages")
	}
	params.Input = oresponses.ResponseNewParamsInputUnion{OfInputItemList: items}
	if instructions != "" {
		params.Instructions = openai.String(instructions)
	}

	stream := p.client.Responses.NewStreaming(ctx, params)
	var textBuf strings.Builder
	var completed oresponses.Response
	gotCompleted := false

	for stream.Next() {
		event := stream.Current()
		switch strings.TrimSpace(event.Type) {
		case "response.output_text.delta":
			delta := event.Delta.OfString
			if delta == "" {
				continue
			}
			textBuf.WriteString(delta)
			emitDelta(onDelta, delta)
		case "response.completed":
			completed = event.Response
			gotCompleted = true
		}
	}
	if err := stream.Err(); err != nil {
		return ChatResult{}, err
	}
	if !gotCompleted {
		return ChatResult{}, errors.New("missing response.completed event")
	}

	return ChatResult{
		Text:         textBuf.String(),
		FinishReason: mapOpenAIStatus(completed.Status),
		InputTokens:  completed.Usage.InputTokens,
		OutputTokens: completed.Usage.OutputTokens,
	}, nil
}

// buildOpenAIInput turns chat history into Responses input items. System
// text rides in the instructions field rather than the item list.
func buildOpenAIInput(systemPrompt string, messages []Message) (oresponses.ResponseInputParam, string) {
	items := make(oresponses.ResponseInputParam, 0, len(messages))
	instructions := strings.TrimSpace(systemPrompt)
	for _, msg := range messages {
		txt := strings.TrimSpace(msg.Content)
		if txt == "" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(msg.Role)) {
		case "system":
			if instructions == "" {
				instructions = txt
			} else {
				instructions += "\n\n" + txt
			}
		case "assistant":
			items = append(items, oresponses.ResponseInputItemParamOfMessage(txt, oresponses.EasyInputMessageRoleAssistant))
		default:
			items = append(items, oresponses.ResponseInputItemParamOfMessage(txt, oresponses.EasyInputMessageRoleUser))
		}
	}
	return items, instructions
}

func mapOpenAIStatus(status oresponses.ResponseStatus) string {
	switch strings.TrimSpace(strings.ToLower(string(status))) {
	case "completed":
		return "stop"
	case "incomplete":
		return "length"
	case "failed", "cancelled":
		return "error"
	default:
		return "unknown"
	}
}
