package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/sprinkler-controller/internal/model"
	"github.com/thatsimonsguy/sprinkler-controller/internal/scheduler"
)

type Server struct {
	sched *scheduler.Scheduler
}

type TimerRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	OutputID        string   `json:"output_id"`
	StartTime       string   `json:"start_time"`
	DurationSeconds int      `json:"duration_seconds"`
	Enabled         *bool    `json:"enabled,omitempty"`
	Days            []string `json:"days,omitempty"`
}

type TimerResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	OutputID        string   `json:"output_id"`
	StartTime       string   `json:"start_time"`
	DurationSeconds int      `json:"duration_seconds"`
	Enabled         bool     `json:"enabled"`
	Days            []string `json:"days,omitempty"`
}

type OutputsResponse struct {
	Outputs map[string]bool   `json:"outputs"`
	Faults  map[string]string `json:"faults,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(sched *scheduler.Scheduler) *Server {
	return &Server{sched: sched}
}

func (s *Server) Start(port int) error {
	mux := http.NewServeMux()

	// Add CORS middleware
	corsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		mux.ServeHTTP(w, r)
	})

	mux.HandleFunc("/api/timers", s.handleTimers)
	mux.HandleFunc("/api/timers/", s.handleTimerByID)
	mux.HandleFunc("/api/outputs", s.handleOutputs)

	addr := fmt.Sprintf("0.0.0.0:%d", port)
	log.Info().Str("address", addr).Msg("Starting REST API server")

	return http.ListenAndServe(addr, corsHandler)
}

func (s *Server) handleTimers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listTimers(w, r)
	case http.MethodPost:
		s.createTimer(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleTimerByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/timers/")
	if id == "" || strings.Contains(id, "/") {
		s.writeError(w, http.StatusNotFound, "Timer ID required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getTimer(w, r, id)
	case http.MethodPut:
		s.updateTimer(w, r, id)
	case http.MethodDelete:
		s.deleteTimer(w, r, id)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *Server) handleOutputs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	response := OutputsResponse{
		Outputs: s.sched.OutputStates(),
		Faults:  s.sched.DriverFaults(),
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) listTimers(w http.ResponseWriter, r *http.Request) {
	timers := s.sched.List()
	response := make([]TimerResponse, 0, len(timers))
	for _, t := range timers {
		response = append(response, toResponse(t))
	}
	s.writeJSON(w, http.StatusOK, response)
}

func (s *Server) createTimer(w http.ResponseWriter, r *http.Request) {
	var req TimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	spec, err := toSpec(req)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	t, err := s.sched.Add(spec)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	log.Info().Str("timer", t.ID).Str("output", t.OutputID).Msg("Timer created via API")
	s.writeJSON(w, http.StatusCreated, toResponse(t))
}

func (s *Server) getTimer(w http.ResponseWriter, r *http.Request, id string) {
	for _, t := range s.sched.List() {
		if t.ID == id {
			s.writeJSON(w, http.StatusOK, toResponse(t))
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "Timer not found")
}

func (s *Server) updateTimer(w http.ResponseWriter, r *http.Request, id string) {
	var req TimerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	spec, err := toSpec(req)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	t, err := s.sched.Update(id, spec)
	if err != nil {
		s.writeSchedulerError(w, err)
		return
	}

	log.Info().Str("timer", id).Msg("Timer updated via API")
	s.writeJSON(w, http.StatusOK, toResponse(t))
}

func (s *Server) deleteTimer(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.sched.Delete(id); err != nil {
		s.writeSchedulerError(w, err)
		return
	}
	log.Info().Str("timer", id).Msg("Timer deleted via API")
	w.WriteHeader(http.StatusNoContent)
}

func toSpec(req TimerRequest) (model.TimerSpec, error) {
	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return model.TimerSpec{}, err
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return model.TimerSpec{
		Name:        req.Name,
		Description: req.Description,
		OutputID:    req.OutputID,
		StartTime:   start,
		Duration:    time.Duration(req.DurationSeconds) * time.Second,
		Enabled:     enabled,
		Days:        req.Days,
	}, nil
}

func toResponse(t model.Timer) TimerResponse {
	return TimerResponse{
		ID:              t.ID,
		Name:            t.Name,
		Description:     t.Description,
		OutputID:        t.OutputID,
		StartTime:       t.StartTime.String(),
		DurationSeconds: int(t.Duration / time.Second),
		Enabled:         t.Enabled,
		Days:            t.Days,
	}
}

func (s *Server) writeSchedulerError(w http.ResponseWriter, err error) {
	var (
		ve *model.ValidationError
		nf *model.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		s.writeError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &nf):
		s.writeError(w, http.StatusNotFound, "Timer not found")
	default:
		log.Error().Err(err).Msg("Management operation failed")
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}
