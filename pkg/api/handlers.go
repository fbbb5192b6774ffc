package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/tunogya/twin/pkg/model"
	"github.com/tunogya/twin/pkg/similarity"
)

// Finder answers similarity queries
type Finder interface {
	FindSimilar(ctx context.Context, req similarity.Request) ([]model.SimilarityResult, error)
}

// PresetStore persists named weight presets
type PresetStore interface {
	Save(ctx context.Context, p *model.Preset) error
	Get(ctx context.Context, name string) (*model.Preset, error)
	List(ctx context.Context) ([]model.Preset, error)
	Delete(ctx context.Context, name string) error
}

// errPresetsUnavailable is returned when the server runs without a preset store
var errPresetsUnavailable = errors.New("presets are not available")

// Handler handles similarity and preset HTTP requests
type Handler struct {
	finder  Finder
	presets PresetStore
	log     zerolog.Logger
}

// NewHandler creates a new API handler
func NewHandler(finder Finder, presets PresetStore, log zerolog.Logger) *Handler {
	return &Handler{
		finder:  finder,
		presets: presets,
		log:     log.With().Str("handler", "api").Logger(),
	}
}

// RegisterRoutes registers the API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/similar", h.HandleSimilar)

	r.Route("/presets", func(r chi.Router) {
		r.Get("/", h.HandleListPresets)
		r.Get("/{name}", h.HandleGetPreset)
		r.Put("/{name}", h.HandlePutPreset)
		r.Delete("/{name}", h.HandleDeletePreset)
	})
}

// HandleHealth reports liveness
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// SimilarRequest is the body of POST /api/similar
type SimilarRequest struct {
	TargetID      string              `json:"target_id"`
	Weights       model.WeightProfile `json:"weights"`
	Horizon       string              `json:"horizon"`
	IndustryOnly  *bool               `json:"industry_only"`
	Limit         int                 `json:"limit"`
	MinSimilarity float64             `json:"min_similarity"`
	Preset        string              `json:"preset"`
	AsOf          string              `json:"as_of"` // YYYY-MM-DD, defaults to today
}

// HandleSimilar ranks the universe against a target
func (h *Handler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	var body SimilarRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	req, err := h.buildRequest(r.Context(), body)
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}

	results, err := h.finder.FindSimilar(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("target", req.TargetID).Msg("Similarity query failed")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"data": results,
		"metadata": map[string]any{
			"timestamp":     time.Now().UTC().Format(time.RFC3339),
			"target_id":     req.TargetID,
			"horizon":       req.Horizon,
			"industry_only": req.IndustryOnly,
			"count":         len(results),
		},
	})
}

// buildRequest resolves the optional preset and layers explicit fields over it
func (h *Handler) buildRequest(ctx context.Context, body SimilarRequest) (similarity.Request, error) {
	req := similarity.Request{
		TargetID:      body.TargetID,
		Weights:       body.Weights,
		Limit:         body.Limit,
		MinSimilarity: body.MinSimilarity,
	}

	if body.Preset != "" {
		if h.presets == nil {
			return req, errPresetsUnavailable
		}
		p, err := h.presets.Get(ctx, body.Preset)
		if err != nil {
			return req, err
		}
		req.Weights = p.Settings.Weights.Merge(body.Weights)
		req.Horizon = p.Settings.Horizon
		req.IndustryOnly = p.Settings.IndustryOnly
	}

	if body.Horizon != "" {
		horizon, err := model.ParseHorizon(body.Horizon)
		if err != nil {
			return req, fmt.Errorf("%w: %w", similarity.ErrInvalidRequest, err)
		}
		req.Horizon = horizon
	}
	if req.Horizon == "" {
		req.Horizon = model.Horizon1Y
	}
	if body.IndustryOnly != nil {
		req.IndustryOnly = *body.IndustryOnly
	}
	if body.AsOf != "" {
		asOf, err := time.Parse("2006-01-02", body.AsOf)
		if err != nil {
			return req, fmt.Errorf("%w: as_of must be YYYY-MM-DD", similarity.ErrInvalidRequest)
		}
		req.AsOf = asOf
	}

	return req, nil
}

// HandleListPresets returns every preset
func (h *Handler) HandleListPresets(w http.ResponseWriter, r *http.Request) {
	if h.presets == nil {
		h.writeError(w, http.StatusNotImplemented, errPresetsUnavailable.Error())
		return
	}

	presets, err := h.presets.List(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list presets")
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"data": presets,
		"metadata": map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"count":     len(presets),
		},
	})
}

// HandleGetPreset returns one preset
func (h *Handler) HandleGetPreset(w http.ResponseWriter, r *http.Request) {
	if h.presets == nil {
		h.writeError(w, http.StatusNotImplemented, errPresetsUnavailable.Error())
		return
	}

	p, err := h.presets.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

// HandlePutPreset creates or replaces a preset. The body is the preset settings.
func (h *Handler) HandlePutPreset(w http.ResponseWriter, r *http.Request) {
	if h.presets == nil {
		h.writeError(w, http.StatusNotImplemented, errPresetsUnavailable.Error())
		return
	}

	var settings model.PresetSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	p := &model.Preset{Name: chi.URLParam(r, "name"), Settings: settings}
	if err := h.presets.Save(r.Context(), p); err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.log.Error().Err(err).Str("preset", p.Name).Msg("Failed to save preset")
		}
		h.writeError(w, status, err.Error())
		return
	}

	h.log.Info().Str("preset", p.Name).Msg("Saved preset")
	h.writeJSON(w, http.StatusOK, map[string]any{"data": p})
}

// HandleDeletePreset removes a preset
func (h *Handler) HandleDeletePreset(w http.ResponseWriter, r *http.Request) {
	if h.presets == nil {
		h.writeError(w, http.StatusNotImplemented, errPresetsUnavailable.Error())
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.presets.Delete(r.Context(), name); err != nil {
		h.writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, similarity.ErrTargetNotFound), errors.Is(err, model.ErrPresetNotFound):
		return http.StatusNotFound
	case errors.Is(err, similarity.ErrInsufficientUniverse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, similarity.ErrInvalidRequest),
		errors.Is(err, model.ErrInvalidWeight),
		errors.Is(err, model.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, errPresetsUnavailable):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": strings.TrimSpace(message)})
}
