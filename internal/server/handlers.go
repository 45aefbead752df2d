package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scavengerhunt/internal/catalog"
	"scavengerhunt/internal/round"
)

const (
	defaultArchiveLimit = 20
	maxArchiveLimit     = 100
)

type joinRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "Missing required field: name")
		return
	}
	p := s.Engine.Join(name)
	s.writeJSON(w, http.StatusOK, map[string]any{"player": p})
}

type readyRequest struct {
	PlayerID string `json:"playerId"`
	IsReady  *bool  `json:"isReady"`
}

func (s *Server) handlePlayerReady(w http.ResponseWriter, r *http.Request) {
	var req readyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PlayerID == "" || req.IsReady == nil {
		s.writeError(w, http.StatusBadRequest, "Invalid playerId or isReady value")
		return
	}
	s.Engine.SetReady(req.PlayerID, *req.IsReady)
	s.ack(w, fmt.Sprintf("Player ready status updated to %t", *req.IsReady))
}

type itemFoundRequest struct {
	PlayerID  string   `json:"playerId"`
	ItemIndex *int     `json:"itemIndex"`
	TimeTaken *float64 `json:"timeTaken"`
}

func (s *Server) handleItemFound(w http.ResponseWriter, r *http.Request) {
	var req itemFoundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.PlayerID == "" || req.ItemIndex == nil || req.TimeTaken == nil {
		s.writeError(w, http.StatusBadRequest, "Missing required fields: playerId, itemIndex, timeTaken")
		return
	}
	if *req.ItemIndex < 0 || *req.TimeTaken <= 0 {
		s.writeError(w, http.StatusBadRequest, "itemIndex must be non-negative and timeTaken positive")
		return
	}
	s.Engine.RecordItemFound(req.PlayerID, *req.ItemIndex, *req.TimeTaken)
	s.ack(w, "Item found recorded successfully")
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	rd, err := s.Engine.Start()
	if errors.Is(err, round.ErrAlreadyStarted) || errors.Is(err, round.ErrNoPlayers) {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.Log.WithError(err).Error("starting game")
		s.writeError(w, http.StatusInternalServerError, "Failed to start game")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Game started!",
		"round":   rd,
	})
}

func (s *Server) handleStopGame(w http.ResponseWriter, r *http.Request) {
	s.Engine.Stop()
	s.ack(w, "Game stopped successfully")
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.Engine.Reset()
	s.ack(w, "Game state reset successfully")
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Status())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Engine.Leaderboard())
}

type leaderboardRequest struct {
	Name      string   `json:"name"`
	Speed     *float64 `json:"speed"`
	Timestamp string   `json:"timestamp"`
}

func (s *Server) handleSubmitLeaderboard(w http.ResponseWriter, r *http.Request) {
	var req leaderboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Speed == nil || *req.Speed < 0 {
		s.writeError(w, http.StatusBadRequest, "Missing or invalid fields: name, speed")
		return
	}

	var at time.Time
	if req.Timestamp != "" {
		t, err := time.Parse(time.RFC3339Nano, req.Timestamp)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "timestamp must be ISO-8601")
			return
		}
		at = t
	}
	entry := s.Engine.SubmitLeaderboardEntry(name, *req.Speed, at)
	s.writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.Catalog.All())
}

type detectionsRequest struct {
	ItemIndex  *int                `json:"itemIndex"`
	Detections []catalog.Detection `json:"detections"`
}

// handleDetections reports whether a detector's output for one frame counts
// as finding the round's item at itemIndex.
func (s *Server) handleDetections(w http.ResponseWriter, r *http.Request) {
	var req detectionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemIndex == nil {
		s.writeError(w, http.StatusBadRequest, "Missing required field: itemIndex")
		return
	}
	items := s.Engine.Snapshot().CurrentItems
	if *req.ItemIndex < 0 || *req.ItemIndex >= len(items) {
		s.writeError(w, http.StatusBadRequest, "itemIndex is not in the current round")
		return
	}
	item := items[*req.ItemIndex]
	s.writeJSON(w, http.StatusOK, map[string]any{
		"item":    item,
		"matched": item.MatchedBy(req.Detections),
	})
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		s.writeError(w, http.StatusServiceUnavailable, "Run archive is not configured")
		return
	}
	limit := defaultArchiveLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxArchiveLimit)
	}
	runs, err := s.DB.TopRuns(r.Context(), limit)
	if err != nil {
		s.Log.WithError(err).Error("querying archive")
		s.writeError(w, http.StatusInternalServerError, "Failed to query archive")
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.DB != nil {
		if err := s.DB.Ping(r.Context()); err != nil {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "db_error",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
