package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/session"
	"github.com/relicforge/relic-server-go/internal/sheet"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Server exposes a session over HTTP.
type Server struct {
	session  *session.Session
	hub      *Hub
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	version  string
}

// New creates the HTTP surface. hub and gatherer may be nil, which disables
// /v1/events and /metrics respectively.
func New(sess *session.Session, hub *Hub, gatherer prometheus.Gatherer, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session:  sess,
		hub:      hub,
		gatherer: gatherer,
		logger:   logger,
		version:  version,
	}
}

// Handler returns the routed handler wrapped in recovery and logging middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/catalog", s.handleCatalog)
	mux.HandleFunc("GET /v1/effects", s.handleAllEffects)
	mux.HandleFunc("POST /v1/effects/apply", s.handleApply)
	mux.HandleFunc("POST /v1/effects/remove", s.handleRemove)
	mux.HandleFunc("GET /v1/characters", s.handleListCharacters)
	mux.HandleFunc("POST /v1/characters", s.handleCreateCharacter)
	mux.HandleFunc("GET /v1/characters/{id}", s.handleGetCharacter)
	mux.HandleFunc("GET /v1/characters/{id}/effects", s.handleCharacterEffects)
	mux.HandleFunc("DELETE /v1/characters/{id}/effects", s.handleWipe)
	mux.HandleFunc("POST /v1/characters/{id}/resources/{name}/{op}", s.handleResource)
	mux.HandleFunc("POST /v1/characters/{id}/refresh", s.handleRefresh)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	if s.hub != nil {
		mux.HandleFunc("GET /v1/events", s.hub.ServeWS)
	}
	return Chain(mux, RecoveryMiddleware(s.logger), LoggingMiddleware(s.logger))
}

type applyRequest struct {
	EffectID string `json:"effect_id"`
	TargetID string `json:"target_id"`
}

type removeRequest struct {
	InstanceID string `json:"instance_id"`
}

type createCharacterRequest struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
}

type amountRequest struct {
	Amount int `json:"amount"`
}

type refreshRequest struct {
	Cadence string `json:"cadence"`
}

type errorResponse struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "version": s.version})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"effects": s.session.Catalog()})
}

func (s *Server) handleAllEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"instances": s.session.AllEffects()})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.EffectID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad-request", Error: "effect_id is required"})
		return
	}
	if strings.TrimSpace(req.TargetID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: string(effects.ReasonNoTarget)})
		return
	}
	res, err := s.session.Apply(r.Context(), req.EffectID, req.TargetID)
	if err != nil && !res.OK {
		s.writeError(w, err)
		return
	}
	if err != nil {
		s.logger.Error("effect applied but not saved", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, reasonStatus(res.Reason), res)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.InstanceID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad-request", Error: "instance_id is required"})
		return
	}
	res, err := s.session.Remove(r.Context(), req.InstanceID)
	if err != nil {
		s.logger.Error("effect removed but not saved", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}
	writeJSON(w, reasonStatus(res.Reason), res)
}

func (s *Server) handleListCharacters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"characters": s.session.Characters()})
}

func (s *Server) handleCreateCharacter(w http.ResponseWriter, r *http.Request) {
	var req createCharacterRequest
	if !s.decode(w, r, &req) {
		return
	}
	snap, err := s.session.CreateCharacter(r.Context(), req.ID, req.Name, req.Attributes)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.session.Character(r.PathValue("id"))
	if !ok {
		s.writeError(w, sheet.ErrCharacterNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleCharacterEffects(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.session.Character(id); !ok {
		s.writeError(w, sheet.ErrCharacterNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"instances": s.session.Effects(id)})
}

func (s *Server) handleWipe(w http.ResponseWriter, r *http.Request) {
	n, err := s.session.Wipe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "removed": n})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !s.decode(w, r, &req) {
		return
	}
	id, name := r.PathValue("id"), r.PathValue("name")

	var (
		res sheet.Resource
		err error
	)
	switch r.PathValue("op") {
	case "spend":
		res, err = s.session.Spend(r.Context(), id, name, req.Amount)
	case "gain":
		res, err = s.session.Gain(r.Context(), id, name, req.Amount)
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !s.decode(w, r, &req) {
		return
	}
	refreshed, err := s.session.Refresh(r.Context(), r.PathValue("id"), req.Cadence)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if refreshed == nil {
		refreshed = []sheet.Resource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"refreshed": refreshed})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Reason: "bad-request", Error: err.Error()})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, reason := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Reason: reason, Error: err.Error()})
}

func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sheet.ErrCharacterNotFound):
		return http.StatusNotFound, "missing-character"
	case errors.Is(err, sheet.ErrUnknownResource):
		return http.StatusNotFound, "missing-resource"
	case errors.Is(err, sheet.ErrCharacterExists):
		return http.StatusConflict, "character-exists"
	case errors.Is(err, sheet.ErrEmptyCharacterID), errors.Is(err, sheet.ErrInvalidAmount):
		return http.StatusBadRequest, "bad-request"
	}
	return http.StatusInternalServerError, "internal"
}

func reasonStatus(reason effects.Reason) int {
	switch reason {
	case "":
		return http.StatusOK
	case effects.ReasonMissingEffect, effects.ReasonMissingInstance:
		return http.StatusNotFound
	case effects.ReasonNoTarget:
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
