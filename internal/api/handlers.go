package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/store"
	"github.com/yangwenmai/kirbuk/internal/worker"
)

// ---------------------------------------------------------------------------
// POST /submit
// ---------------------------------------------------------------------------

type submitRequest struct {
	ProductURL   string `json:"product_url"`
	Directions   string `json:"directions"`
	Email        string `json:"email"`
	TestUsername string `json:"test_username"`
	TestPassword string `json:"test_password"`
	Tone         string `json:"tone"`
	Humorous     bool   `json:"humorous"`
}

type submitResponse struct {
	Success      bool   `json:"success"`
	SubmissionID string `json:"submission_id"`
	Message      string `json:"message"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	sub := model.NewSubmission(uuid.New().String(), strings.TrimSpace(req.ProductURL), req.Directions)
	sub.Email = strings.TrimSpace(req.Email)
	sub.TestUsername = req.TestUsername
	sub.TestPassword = req.TestPassword
	sub.Tone = model.ParseTone(req.Tone)
	if req.Humorous {
		sub.Tone = model.ToneHumorous
	}
	if err := sub.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.submitter.Submit(r.Context(), sub); err != nil {
		if errors.Is(err, worker.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "too many submissions in progress, try again shortly")
			return
		}
		slog.Error("enqueue submission", "submission_id", sub.ID, "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to start submission")
		return
	}

	slog.Info("submission accepted", "submission_id", sub.ID, "product_url", sub.ProductURL, "tone", sub.Tone)
	writeJSON(w, http.StatusOK, submitResponse{
		Success:      true,
		SubmissionID: sub.ID,
		Message:      "Your demo video is being created. Check the status page for progress.",
	})
}

// ---------------------------------------------------------------------------
// GET /api/status/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validID(id) {
		writeError(w, http.StatusBadRequest, "invalid submission id")
		return
	}

	status, err := store.Inspect(r.Context(), s.store, s.layout, id, s.linkTTL)
	if err != nil {
		slog.Error("inspect submission", "submission_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// validID rejects ids that could escape the submission's key prefix.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}

// ---------------------------------------------------------------------------
// GET /artifacts/*
// ---------------------------------------------------------------------------

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	if s.artifacts == nil || s.signer == nil {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, store.ArtifactRoute)
	q := r.URL.Query()
	if err := s.signer.Verify(key, q.Get("expires"), q.Get("sig")); err != nil {
		status := http.StatusForbidden
		if errors.Is(err, store.ErrLinkExpired) {
			status = http.StatusGone
		}
		http.Error(w, err.Error(), status)
		return
	}

	data, contentType, err := s.artifacts.GetWithType(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		slog.Error("read artifact", "key", key, "error", err)
		http.Error(w, "failed to read artifact", http.StatusInternalServerError)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

// ---------------------------------------------------------------------------
// GET /healthz
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
