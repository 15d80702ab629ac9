package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/mentor/internal/store"
	"github.com/thebtf/mentor/pkg/models"
)

type queryRequest struct {
	Query      string `json:"query"`
	Department string `json:"department"`
	SessionID  string `json:"session_id"`
}

type queryResponse struct {
	Response string `json:"response"`
}

type taskRequest struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type taskPatchRequest struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

type studyLogRequest struct {
	SessionID string `json:"session_id"`
	Minutes   int    `json:"minutes"`
}

type analyticsResponse struct {
	Study models.StudyStats `json:"study"`
	Tasks models.TaskStats  `json:"tasks"`
}

type roadmapRequest struct {
	Department string `json:"department"`
	Level      string `json:"level"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"version": s.version,
		"uptime":  time.Since(s.startTime).String(),
	})
}

func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	reply, err := s.engine.Process(r.Context(), req.Query, req.Department, req.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "session store unavailable")
			return
		}
		log.Error().Err(err).Msg("Query processing failed")
		writeError(w, http.StatusInternalServerError, "failed to process query")
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Response: reply})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	history, err := s.store.FullHistory(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

func (s *Service) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := s.store.DeleteSession(r.Context(), sessionID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	tasks, err := s.store.ListTasks(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

func (s *Service) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Title == "" {
		writeError(w, http.StatusBadRequest, "session_id and title are required")
		return
	}

	task := models.Task{
		Title:     req.Title,
		Completed: req.Completed,
		SessionID: req.SessionID,
	}
	stored, err := s.store.UpsertTask(r.Context(), req.SessionID, task)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Service) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	taskID := chi.URLParam(r, "taskID")

	var req taskPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := models.TaskPatch{Title: req.Title, Completed: req.Completed}
	found, err := s.store.PatchTask(r.Context(), sessionID, taskID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Service) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	taskID := chi.URLParam(r, "taskID")
	if err := s.store.DeleteTask(r.Context(), sessionID, taskID); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Service) handleLogStudy(w http.ResponseWriter, r *http.Request) {
	var req studyLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.Minutes <= 0 {
		writeError(w, http.StatusBadRequest, "minutes must be positive")
		return
	}

	if err := s.store.LogStudyMinutes(r.Context(), req.SessionID, req.Minutes); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged"})
}

func (s *Service) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	study, err := s.store.StudyStats(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var taskStats models.TaskStats
	taskStats.Total = len(tasks)
	for _, t := range tasks {
		if t.Completed {
			taskStats.Completed++
		}
	}
	taskStats.Pending = taskStats.Total - taskStats.Completed

	writeJSON(w, http.StatusOK, analyticsResponse{Study: study, Tasks: taskStats})
}

func (s *Service) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	var req roadmapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Department == "" {
		writeError(w, http.StatusBadRequest, "department is required")
		return
	}
	if req.Level == "" {
		req.Level = "beginner"
	}

	roadmap := s.engine.GenerateRoadmap(r.Context(), req.Department, req.Level)
	writeJSON(w, http.StatusOK, roadmap)
}

func (s *Service) handleResources(w http.ResponseWriter, r *http.Request) {
	department := r.URL.Query().Get("department")
	if department == "" {
		writeJSON(w, http.StatusOK, map[string]any{"departments": s.catalog.Departments()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"department": department,
		"resources":  s.catalog.Resources(department),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrUnavailable) {
		writeError(w, http.StatusServiceUnavailable, "session store unavailable")
		return
	}
	log.Error().Err(err).Msg("Store operation failed")
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("internal error: %v", err))
}
