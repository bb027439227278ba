package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auditlog"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/history"
)

func (s *Server) storeFor(w http.ResponseWriter, r *http.Request) (*history.Store, bool) {
	u := userFrom(r)
	if u == nil {
		writeError(w, http.StatusUnauthorized, "missing user")
		return nil, false
	}
	st, err := s.history.StoreFor(u.UserID)
	if err != nil {
		s.log.Error("open history store failed", "user_id", u.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "history unavailable")
		return nil, false
	}
	return st, true
}

type threadsResp struct {
	Threads         []*history.Thread `json:"threads"`
	CurrentThreadID string            `json:"currentThreadId"`
	Groups          []history.Group   `json:"groups"`
}

func (s *Server) handleListThreads(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	threads := st.Threads()
	writeJSON(w, http.StatusOK, threadsResp{
		Threads:         threads,
		CurrentThreadID: st.CurrentThreadID(),
		Groups:          history.GroupByRecency(threads, time.Now()),
	})
}

type createThreadReq struct {
	Feature string `json:"feature"`
}

func (s *Server) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	var req createThreadReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	id, err := st.CreateThread(req.Feature)
	if errors.Is(err, history.ErrInvalidFeature) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown feature %q", req.Feature))
		return
	}
	if err != nil && !errors.Is(err, history.ErrPersistence) {
		writeError(w, http.StatusInternalServerError, "create thread failed")
		return
	}
	if errors.Is(err, history.ErrPersistence) {
		// The thread exists in memory; the snapshot write will be retried on
		// the next mutation. Surface the thread rather than failing the UI.
		s.log.Warn("history persist failed", "user_id", st.UserID(), "error", err)
	}

	s.audit.Append(auditlog.Entry{Action: auditlog.ActionThreadCreated, UserID: st.UserID(), ThreadID: id, Feature: req.Feature})
	writeJSON(w, http.StatusOK, st.GetThread(id))
}

func (s *Server) handleCurrentThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"currentThreadId": st.CurrentThreadID(),
		"thread":          st.GetCurrentThread(),
	})
}

func (s *Server) handleGetThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	t := st.GetThread(r.PathValue("id"))
	if t == nil {
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleSelectThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	st.SetCurrentThreadID(r.PathValue("id"))
	writeJSON(w, http.StatusOK, map[string]string{"currentThreadId": st.CurrentThreadID()})
}

type renameThreadReq struct {
	Title string `json:"title"`
}

func (s *Server) handleRenameThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	var req renameThreadReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := st.RenameThread(r.PathValue("id"), req.Title); err != nil && !errors.Is(err, history.ErrPersistence) {
		writeError(w, http.StatusInternalServerError, "rename failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type replaceMessagesReq struct {
	Messages []history.Message `json:"messages"`
}

func (s *Server) handleReplaceMessages(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	var req replaceMessagesReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := st.ReplaceMessages(r.PathValue("id"), req.Messages); err != nil && !errors.Is(err, history.ErrPersistence) {
		writeError(w, http.StatusInternalServerError, "replace messages failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDeleteThread(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if err := st.DeleteThread(id); err != nil && !errors.Is(err, history.ErrPersistence) {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	s.audit.Append(auditlog.Entry{Action: auditlog.ActionThreadDeleted, UserID: st.UserID(), ThreadID: id})
	writeJSON(w, http.StatusOK, map[string]string{"currentThreadId": st.CurrentThreadID()})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	if err := st.ClearAll(); err != nil {
		writeError(w, http.StatusInternalServerError, "clear history failed")
		return
	}
	s.audit.Append(auditlog.Entry{Action: auditlog.ActionHistoryCleared, UserID: st.UserID()})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleExportHistory(w http.ResponseWriter, r *http.Request) {
	st, ok := s.storeFor(w, r)
	if !ok {
		return
	}
	b, err := st.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "export failed")
		return
	}
	filename := fmt.Sprintf("vidya-ai-chat-history-%s.json", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}
