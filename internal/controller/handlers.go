package controller

import (
	"encoding/json"
	"net/http"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"compat": []string{"v1"}})
}

func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	userAlias := r.URL.Query().Get("user_alias")
	if err := s.upstream.createUser(userID, userAlias); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("create_user failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"error": nil})
}

func (s *Service) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if err := s.upstream.deleteUser(userID); err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("delete_user failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"error": nil})
}

func (s *Service) handleCreateKey(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	keyAlias := r.URL.Query().Get("key_alias")

	key, err := s.upstream.createKey(userID, keyAlias)
	if err != nil {
		s.log.Error().Err(err).Str("user_id", userID).Msg("create_key failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	hash, err := keyHash(key)
	if err != nil {
		s.log.Error().Err(err).Msg("key hash computation failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"error": nil, "key": key, "hash": hash})
}

func (s *Service) handleDeleteKey(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if err := s.upstream.deleteKey(key); err != nil {
		s.log.Error().Err(err).Msg("delete_key failed")
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"error": nil})
}

func (s *Service) handleQueryBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	key := r.URL.Query().Get("key")

	var userUsage, keyUsage *float64

	if u, err := s.upstream.queryUser(userID); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("query user failed")
	} else {
		userUsage = &u
	}

	if k, err := s.upstream.queryKey(key); err != nil {
		s.log.Warn().Err(err).Msg("query key failed")
	} else {
		keyUsage = &k
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"error":      nil,
		"user_usage": userUsage,
		"key_usage":  keyUsage,
	})
}

// handleLogCall ingests a trajectory record delivered by an external
// model proxy over HTTP, as an alternative to the in-process logger
// callback path. It always answers 200, per the best-effort contract
// trajlogger itself follows.
func (s *Service) handleLogCall(w http.ResponseWriter, r *http.Request) {
	var rec trajlogRequest
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		s.log.Warn().Err(err).Msg("log_call decode failed")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	s.traj.Write(rec.toRecord())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
