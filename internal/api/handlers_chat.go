package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auditlog"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/history"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/llm"
)

type chatReq struct {
	ThreadID string `json:"threadId"`
	// Feature optionally overrides the thread's feature for this turn.
	Feature string `json:"feature,omitempty"`
	// Model is a wire id (<provider_id>/<model_name>); empty uses the default.
	Model    string            `json:"model,omitempty"`
	Messages []history.Message `json:"messages"`
}

type chatEvent struct {
	Type string `json:"type"` // "delta" | "done" | "error"
	Text string `json:"text,omitempty"`

	ThreadID     string           `json:"threadId,omitempty"`
	Message      *history.Message `json:"message,omitempty"`
	FinishReason string           `json:"finishReason,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// handleChat runs one tutoring turn: it streams the model's reply as NDJSON
// and, on completion, replaces the thread's messages with the turn's full
// transcript. The pre-stream validation happens before any bytes are
// written, so validation failures stay plain JSON errors.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	var req chatReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	thread := st.GetThread(req.ThreadID)
	if thread == nil {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "missing messages")
		return
	}

	featureID := strings.TrimSpace(req.Feature)
	if featureID == "" {
		featureID = thread.Feature
	}
	feature, ok := s.features.Resolve(featureID)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown feature %q", featureID))
		return
	}

	if s.models == nil {
		writeError(w, http.StatusServiceUnavailable, "no model providers configured")
		return
	}
	provider, modelName, err := s.models.Resolve(req.Model)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	llmMessages := make([]llm.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		llmMessages = append(llmMessages, llm.Message{Role: m.Role, Content: m.Content})
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	stream := newNDJSONStream(w)

	result, err := provider.StreamChat(r.Context(), llm.ChatRequest{
		Model:        modelName,
		SystemPrompt: feature.SystemPrompt,
		Messages:     llmMessages,
	}, func(text string) {
		_ = stream.send(chatEvent{Type: "delta", Text: text})
	})
	if err != nil {
		s.log.Warn("chat turn failed", "user_id", st.UserID(), "thread_id", req.ThreadID, "error", err)
		s.audit.Append(auditlog.Entry{Action: auditlog.ActionChatTurn, Status: "failure", UserID: st.UserID(), ThreadID: req.ThreadID, Feature: featureID, ModelID: req.Model, Error: err.Error()})
		_ = stream.send(chatEvent{Type: "error", Error: "model request failed"})
		return
	}

	now := time.Now().UnixMilli()
	assistant := history.Message{
		ID:        uuid.NewString(),
		Role:      history.RoleAssistant,
		Content:   result.Text,
		Timestamp: now,
	}

	transcript := make([]history.Message, 0, len(req.Messages)+1)
	for _, m := range req.Messages {
		if strings.TrimSpace(m.ID) == "" {
			m.ID = uuid.NewString()
		}
		transcript = append(transcript, m)
	}
	transcript = append(transcript, assistant)

	if err := st.ReplaceMessages(req.ThreadID, transcript); err != nil {
		// The in-memory thread already holds the turn; log and keep streaming.
		s.log.Warn("history persist failed after chat turn", "user_id", st.UserID(), "thread_id", req.ThreadID, "error", err)
	}

	s.audit.Append(auditlog.Entry{Action: auditlog.ActionChatTurn, UserID: st.UserID(), ThreadID: req.ThreadID, Feature: featureID, ModelID: req.Model, Detail: map[string]any{
		"input_tokens":  result.InputTokens,
		"output_tokens": result.OutputTokens,
	}})

	done := chatEvent{
		Type:         "done",
		ThreadID:     req.ThreadID,
		Message:      &assistant,
		FinishReason: result.FinishReason,
	}
	if err := stream.send(done); err != nil {
		s.log.Warn("chat stream closed before done event", "thread_id", req.ThreadID, "error", err)
	}
}
