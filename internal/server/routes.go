package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/vibecoding/mcp-server/internal/auth"
	"github.com/vibecoding/mcp-server/internal/schema"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	for k, v := range s.retriever.Stats() {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.cfg.Version})
}

// handleToken exchanges form-encoded credentials for a bearer token.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed form body")
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	user, err := s.auth.VerifyUser(username, password)
	if err != nil {
		log.Printf("server: verifying user: %v", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, err := s.auth.CreateAccessToken(user.Username)
	if err != nil {
		log.Printf("server: issuing token: %v", err)
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   s.auth.ExpirySeconds(),
	})
}

// handleContext serves authenticated context queries through the retrieval
// orchestrator.
func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	var req schema.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, "%v", err)
		return
	}
	if !s.checkSourcePermissions(w, r, &req) {
		return
	}

	resp, err := s.retriever.GetContext(r.Context(), &req)
	if err != nil {
		log.Printf("server: context request: %v", err)
		writeDetail(w, http.StatusInternalServerError, "context retrieval failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRawContext serves live aggregation, bypassing the vector index. The
// body is optional; an empty or invalid one falls back to defaults.
func (s *Server) handleRawContext(w http.ResponseWriter, r *http.Request) {
	var req schema.ContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = schema.ContextRequest{}
	}
	if err := req.Validate(); err != nil {
		writeDetail(w, http.StatusBadRequest, "%v", err)
		return
	}
	if !s.checkSourcePermissions(w, r, &req) {
		return
	}

	resp, err := s.aggregator.GetContext(r.Context(), &req)
	if err != nil {
		log.Printf("server: raw context request: %v", err)
		writeDetail(w, http.StatusInternalServerError, "context aggregation failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// checkSourcePermissions rejects the request with 403 when the user lacks
// access to a source it names. Only explicitly listed sources are checked;
// a request without a sources list is served from whatever the fan-out
// yields. Runs before any source is queried.
func (s *Server) checkSourcePermissions(w http.ResponseWriter, r *http.Request, req *schema.ContextRequest) bool {
	user := auth.UserFrom(r.Context())
	if user == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return false
	}
	for _, src := range req.Sources {
		if !user.HasPermission(src) {
			writeDetail(w, http.StatusForbidden, "Not enough permissions for source: %s", src)
			return false
		}
	}
	return true
}
