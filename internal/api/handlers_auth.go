package api

import (
	"errors"
	"net/http"

	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auditlog"
	"github.com/Tanmay-Tiwaricyber/Vidya-Ai/internal/auth"
)

type registerReq struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Password    string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	sess, err := s.auth.Register(r.Context(), req.Email, req.DisplayName, req.Password)
	if err != nil {
		s.audit.Append(auditlog.Entry{Action: auditlog.ActionRegister, Status: "failure", UserEmail: auth.NormalizeEmail(req.Email), Error: err.Error()})
		if errors.Is(err, auth.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.audit.Append(auditlog.Entry{Action: auditlog.ActionRegister, UserID: sess.User.UserID, UserEmail: sess.User.Email})
	writeJSON(w, http.StatusOK, sess)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	sess, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.audit.Append(auditlog.Entry{Action: auditlog.ActionLogin, Status: "failure", UserEmail: auth.NormalizeEmail(req.Email), Error: err.Error()})
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	s.audit.Append(auditlog.Entry{Action: auditlog.ActionLogin, UserID: sess.User.UserID, UserEmail: sess.User.Email})
	writeJSON(w, http.StatusOK, sess)
}
