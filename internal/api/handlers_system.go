package api

import (
	"net/http"
	"strconv"
	"strings"
)

type featureResp struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	ids := s.features.IDs()
	out := make([]featureResp, 0, len(ids))
	for _, id := range ids {
		cfg, ok := s.features.Resolve(id)
		if !ok {
			continue
		}
		// System prompts stay server-side.
		out = append(out, featureResp{
			ID:          id,
			Name:        cfg.Name,
			Description: cfg.Description,
			Prompt:      cfg.Prompt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"features": out})
}

type modelResp struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	out := make([]modelResp, 0, 8)
	for _, p := range s.cfg.Providers {
		pid := strings.TrimSpace(p.ID)
		if pid == "" {
			continue
		}
		for _, m := range p.Models {
			mn := strings.TrimSpace(m.ModelName)
			if mn == "" {
				continue
			}
			out = append(out, modelResp{ID: pid + "/" + mn, Provider: pid, IsDefault: m.IsDefault})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": out})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	if s.monitor == nil {
		writeError(w, http.StatusServiceUnavailable, "monitor disabled")
		return
	}
	snap := s.monitor.Snapshot(r.Context(), r.URL.Query().Get("sort_by"))
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	entries, err := s.audit.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "audit read failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
