package vision

import (
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pawtrait/platform/internal/httpserver"
)

// Handler exposes the Vision Orchestrator's HTTP surface (§6 "Vision endpoints").
type Handler struct {
	svc       *Service
	retrieval RetrievalIndex
	logger    *slog.Logger
}

// NewHandler creates a vision Handler.
func NewHandler(svc *Service, retrieval RetrievalIndex, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, retrieval: retrieval, logger: logger}
}

// Routes mounts the vision and RAG endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/vision/analyze", h.handleAnalyze)
	r.Post("/rag/query", h.handleRAGQuery)
	r.Post("/rag/ingest", h.handleRAGIngest)
	r.Get("/rag/status", h.handleRAGStatus)
	r.With(RequireLoopbackOrPrivate).Post("/admin/rag/initialize", h.handleRAGInitialize)
	return r
}

type analyzeRequest struct {
	Image string `json:"image" validate:"required"`
}

func isValidImageDataURI(image string) bool {
	payload := image
	if idx := strings.Index(image, ","); idx >= 0 {
		if !strings.HasPrefix(image, "data:image/") {
			return false
		}
		payload = image[idx+1:]
	}
	if payload == "" {
		return false
	}
	_, err := base64.StdEncoding.DecodeString(payload)
	return err == nil
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if !isValidImageDataURI(req.Image) {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "INVALID_IMAGE", "image must be valid base64, optionally with a data URI prefix")
		return
	}

	result, err := h.svc.Analyze(r.Context(), req.Image)
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, result)
}

func (h *Handler) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrContentPolicyViolation):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "CONTENT_POLICY_VIOLATION", "image content violates policy")
	case errors.Is(err, ErrUnsupportedSpecies):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "UNSUPPORTED_SPECIES", "only dogs and cats are supported")
	case errors.Is(err, ErrSpeciesDetectionFailed):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "SPECIES_DETECTION_FAILED", "could not confidently determine species")
	case errors.Is(err, ErrBreedDetectionFailed):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "BREED_DETECTION_FAILED", "could not confidently determine breed")
	case errors.Is(err, ErrInvalidImage):
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "INVALID_IMAGE", "invalid image data")
	default:
		h.logger.Error("vision pipeline error", "error", err)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "VISION_SERVICE_UNAVAILABLE", "the vision service is temporarily unavailable")
	}
}

type ragQueryRequest struct {
	Query string `json:"query" validate:"required"`
	TopK  int    `json:"top_k" validate:"omitempty,gte=1,lte=20"`
}

func (h *Handler) handleRAGQuery(w http.ResponseWriter, r *http.Request) {
	var req ragQueryRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	topK := req.TopK
	if topK == 0 {
		topK = 3
	}
	chunks, err := h.retrieval.Query(r.Context(), req.Query, topK)
	if err != nil {
		h.logger.Error("rag query", "error", err)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "VISION_SERVICE_UNAVAILABLE", "retrieval index unavailable")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"chunks": chunks})
}

type ragIngestRequest struct {
	Chunks []RetrievalChunk `json:"chunks" validate:"required,min=1,dive"`
}

func (h *Handler) handleRAGIngest(w http.ResponseWriter, r *http.Request) {
	var req ragIngestRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	count, err := h.retrieval.Ingest(r.Context(), req.Chunks)
	if err != nil {
		h.logger.Error("rag ingest", "error", err)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "VISION_SERVICE_UNAVAILABLE", "retrieval index unavailable")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"ingested": count})
}

func (h *Handler) handleRAGStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.retrieval.Status(r.Context())
	if err != nil {
		h.logger.Error("rag status", "error", err)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "VISION_SERVICE_UNAVAILABLE", "retrieval index unavailable")
		return
	}
	httpserver.Respond(w, http.StatusOK, status)
}

func (h *Handler) handleRAGInitialize(w http.ResponseWriter, r *http.Request) {
	status, err := h.retrieval.Status(r.Context())
	if err != nil {
		h.logger.Error("rag initialize", "error", err)
		httpserver.RespondError(w, http.StatusServiceUnavailable, "VISION_SERVICE_UNAVAILABLE", "retrieval index unavailable")
		return
	}
	httpserver.Respond(w, http.StatusOK, status)
}
