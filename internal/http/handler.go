package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mvfy/verify/internal/config"
	"github.com/mvfy/verify/internal/domain"
	"github.com/mvfy/verify/internal/observability"
)

const maxImageBytes = 10 << 20

// Handler handles HTTP requests. It translates the four call shapes the API
// exposes into match-engine and registry calls; all decisions live in the
// domain layer.
type Handler struct {
	extractor     domain.Extractor
	matcher       *domain.MatchService
	registry      *domain.RegistryService
	visitors      *domain.VisitorService
	trackVisitors bool
}

// NewHandler creates a new HTTP handler (DI constructor). visitors may be nil
// when tracking is disabled.
func NewHandler(
	extractor domain.Extractor,
	matcher *domain.MatchService,
	registry *domain.RegistryService,
	visitors *domain.VisitorService,
	visitorCfg *config.VisitorConfig,
) *Handler {
	return &Handler{
		extractor:     extractor,
		matcher:       matcher,
		registry:      registry,
		visitors:      visitors,
		trackVisitors: visitorCfg != nil && visitorCfg.Enabled && visitors != nil,
	}
}

// VerifiedFace pairs a detection with its match decision.
type VerifiedFace struct {
	Box    domain.BoundingBox `json:"box"`
	Result domain.MatchResult `json:"result"`
}

// VerifyResponse is the body of POST /verify.
type VerifyResponse struct {
	Faces []VerifiedFace `json:"faces"`
}

// HandleVerify processes POST /verify: image in, one match decision per
// detected face out.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	cameraID := r.Header.Get("X-Camera-Id")
	if cameraID != "" {
		ctx = observability.WithCameraID(ctx, cameraID)
	}

	image, err := io.ReadAll(io.LimitReader(r.Body, maxImageBytes+1))
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read image: %v", err), http.StatusBadRequest)
		return
	}
	if len(image) > maxImageBytes {
		http.Error(w, "image exceeds size limit", http.StatusRequestEntityTooLarge)
		return
	}

	logger := observability.FromContext(ctx)

	detections, err := h.extractor.Extract(ctx, image, imageFormat(r.Header.Get("Content-Type")))
	if err != nil {
		logger.Error("extraction failed", zap.Error(err))
		writeError(w, err)
		return
	}

	resp := VerifyResponse{Faces: make([]VerifiedFace, 0, len(detections))}
	now := time.Now().UTC()

	for _, detection := range detections {
		result, err := h.matcher.Match(ctx, domain.MatchQuery{
			Embedding: detection.Embedding,
			CameraID:  cameraID,
			Timestamp: now,
		})
		if err != nil {
			logger.Error("match failed", zap.Error(err))
			writeError(w, err)
			return
		}

		if !result.Matched && h.trackVisitors {
			if _, obsErr := h.visitors.Observe(ctx, detection.Embedding, cameraID); obsErr != nil {
				// Tracking is best-effort; the decision already stands.
				logger.Warn("visitor tracking failed", zap.Error(obsErr))
			}
		}

		resp.Faces = append(resp.Faces, VerifiedFace{Box: detection.Box, Result: result})
	}

	logger.Info("verify finished",
		zap.Int("faces", len(resp.Faces)),
		zap.String("camera_id", cameraID))

	writeJSON(w, http.StatusOK, resp)
}

// RegisterRequest is the body of POST /identities.
type RegisterRequest struct {
	ID          string             `json:"id,omitempty"`
	DisplayName string             `json:"display_name"`
	Embeddings  []domain.Embedding `json:"embeddings"`
}

// HandleIdentities processes POST /identities and GET /identities.
func (h *Handler) HandleIdentities(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handleRegister(w, r)
	case http.MethodGet:
		h.handleList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	ctx = observability.WithIdentityID(ctx, req.ID)

	identity, err := h.registry.Register(ctx, req.ID, req.DisplayName, req.Embeddings)
	if err != nil {
		observability.FromContext(ctx).Error("registration failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, identity)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	if status != "" && status != domain.StatusActive && status != domain.StatusDisabled {
		http.Error(w, fmt.Sprintf("unknown status %q", status), http.StatusBadRequest)
		return
	}

	identities, err := h.registry.List(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"identities": identities,
		"count":      len(identities),
	})
}

// UpdateIdentityRequest is the body of PATCH /identities/{id}. Disabling is
// the only supported transition.
type UpdateIdentityRequest struct {
	Status domain.Status `json:"status"`
}

// HandleIdentity processes PATCH /identities/{id}.
func (h *Handler) HandleIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPatch {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/identities/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "identity id is required", http.StatusBadRequest)
		return
	}
	ctx = observability.WithIdentityID(ctx, id)

	var req UpdateIdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}
	if req.Status != domain.StatusDisabled {
		http.Error(w, fmt.Sprintf("unsupported status transition to %q", req.Status), http.StatusBadRequest)
		return
	}

	identity, err := h.registry.Disable(ctx, id)
	if err != nil {
		observability.FromContext(ctx).Error("disable failed", zap.Error(err))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, identity)
}

// HandleHealth handles health check requests.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	stats := h.registry.Stats()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"stats":  stats,
	})
}

// writeError maps domain error classes to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrUnsupportedImage):
		status = http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUpstream):
		// Retryable by the caller; the core does not retry.
		status = http.StatusBadGateway
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Already written status, can't change it.
		return
	}
}

func imageFormat(contentType string) string {
	if idx := strings.Index(contentType, "/"); idx >= 0 {
		return strings.TrimSpace(contentType[idx+1:])
	}
	return ""
}
