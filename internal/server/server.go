package server

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/db"
	"scavengerhunt/internal/round"
	"scavengerhunt/internal/session"
)

type Server struct {
	Engine   *round.Engine
	Sessions *session.Manager
	Catalog  *catalog.Catalog
	DB       *db.DB // nil if no database configured
	Gatherer prometheus.Gatherer
	Log      logrus.FieldLogger
	Origins  []string
}

type errorResponse struct {
	Error string `json:"error"`
}

type ackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Log.WithError(err).Warn("writing response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) ack(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusOK, ackResponse{Success: true, Message: msg})
}
