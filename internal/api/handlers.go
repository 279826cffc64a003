package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/terra-clan/daywise/internal/agent"
	"github.com/terra-clan/daywise/internal/health"
	"github.com/terra-clan/daywise/internal/llm"
	"github.com/terra-clan/daywise/internal/models"
	"github.com/terra-clan/daywise/internal/store"
)

// maxBodyBytes caps request bodies; syllabus text is the largest input
const maxBodyBytes = 2 << 20

// Response helpers

type apiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *apiError   `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := apiResponse{
		Success: false,
		Error: &apiError{
			Code:    code,
			Message: message,
		},
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return false
	}
	return true
}

// Health handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := http.StatusOK
	ready := "ready"

	if s.health != nil {
		results := s.health.CheckAll(r.Context())
		for name, err := range results {
			if err != nil {
				checks[name] = err.Error()
				continue
			}
			checks[name] = "ok"
		}
		if !health.Healthy(results) {
			status = http.StatusServiceUnavailable
			ready = "not_ready"
		}
	}

	respondJSON(w, status, map[string]interface{}{
		"status": ready,
		"checks": checks,
	})
}

// Roadmap handlers

func (s *Server) handleListRoadmaps(w http.ResponseWriter, r *http.Request) {
	roadmaps, err := s.store.GetAll(r.Context())
	if err != nil {
		slog.Error("failed to list roadmaps", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list roadmaps")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"roadmaps": newRoadmapViews(roadmaps),
		"total":    len(roadmaps),
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))
	if async {
		attemptID, err := s.store.GenerateAsync(req)
		if err != nil {
			respondGenerationError(w, err)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{
			"attempt_id": attemptID,
		})
		return
	}

	roadmap, err := s.store.Generate(r.Context(), req)
	if err != nil {
		respondGenerationError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, newRoadmapView(roadmap))
}

func respondGenerationError(w http.ResponseWriter, err error) {
	var (
		verr *models.ValidationError
		gerr *agent.GenerationError
	)
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "validation_error", verr.Error())
	case errors.Is(err, store.ErrClosed):
		respondError(w, http.StatusServiceUnavailable, "unavailable", "service is shutting down")
	case errors.Is(err, llm.ErrBusy):
		respondError(w, http.StatusServiceUnavailable, "busy", "too many generations in progress, try again later")
	case errors.Is(err, context.Canceled):
		respondError(w, http.StatusConflict, "generation_cancelled", "generation was cancelled")
	case errors.As(err, &gerr):
		respondError(w, http.StatusBadGateway, "generation_failed", store.FailureMessage(err))
	default:
		slog.Error("failed to generate roadmap", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", store.FailureMessage(err))
	}
}

func (s *Server) handleGetRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	roadmap, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		slog.Error("failed to get roadmap", "error", err, "roadmap_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get roadmap")
		return
	}
	if roadmap == nil {
		respondError(w, http.StatusNotFound, "not_found", "roadmap not found")
		return
	}

	respondJSON(w, http.StatusOK, newRoadmapView(roadmap))
}

func (s *Server) handleDeleteRoadmap(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		slog.Error("failed to delete roadmap", "error", err, "roadmap_id", id)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to delete roadmap")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "not_found", "roadmap not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "roadmap deleted",
	})
}

func (s *Server) handleUpdateTopicStatus(w http.ResponseWriter, r *http.Request) {
	roadmapID := chi.URLParam(r, "id")
	topicID := chi.URLParam(r, "topicId")

	var req models.UpdateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	status, err := models.ParseTopicStatus(req.Status)
	if err != nil {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	roadmap, err := s.store.UpdateTopicStatus(r.Context(), roadmapID, topicID, status)
	if err != nil {
		slog.Error("failed to update topic status", "error", err, "roadmap_id", roadmapID, "topic_id", topicID)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update topic status")
		return
	}
	if roadmap == nil {
		respondError(w, http.StatusNotFound, "not_found", "roadmap or topic not found")
		return
	}

	respondJSON(w, http.StatusOK, newRoadmapView(roadmap))
}

// Generation state handlers

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newGenerationView(s.store.GenerationState()))
}

// handleResetGeneration returns the state to idle. With cancel=true any
// in-flight attempt is cancelled as well.
func (s *Server) handleResetGeneration(w http.ResponseWriter, r *http.Request) {
	cancelled := 0
	if cancel, _ := strconv.ParseBool(r.URL.Query().Get("cancel")); cancel {
		cancelled = s.store.CancelGeneration()
	}
	s.store.ResetGenerationState()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":     newGenerationView(s.store.GenerationState()),
		"cancelled": cancelled,
	})
}

// Template handlers

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.templateLoader.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"total":     len(templates),
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		respondError(w, http.StatusBadRequest, "validation_error", "template name is required")
		return
	}

	template := s.templateLoader.Get(name)
	if template == nil {
		respondError(w, http.StatusNotFound, "not_found", "template not found")
		return
	}

	respondJSON(w, http.StatusOK, template)
}
