package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/mitate/internal/models"
)

// maxImageUpload caps uploaded query images at 8 MiB.
const maxImageUpload = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"products": s.catalog.Len(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var q models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	resp, err := s.orch.HandleQuery(r.Context(), &q)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleImageSearch accepts a multipart form with an "image" file plus the
// optional text, limit, alpha, user_id and personalize fields.
func (s *Server) handleImageSearch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()
	image, err := io.ReadAll(io.LimitReader(file, maxImageUpload))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	q := models.SearchQuery{
		Text:   r.FormValue("text"),
		Image:  image,
		UserID: r.FormValue("user_id"),
	}
	if v := r.FormValue("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			q.Limit = limit
		}
	}
	if v := r.FormValue("alpha"); v != "" {
		if alpha, err := strconv.ParseFloat(v, 64); err == nil {
			q.Alpha = &alpha
		}
	}
	if r.FormValue("personalize") == "true" {
		q.Personalize = true
	}

	resp, err := s.orch.HandleQuery(r.Context(), &q)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type chatResponse struct {
	SessionID string                       `json:"session_id"`
	Answer    string                       `json:"answer"`
	Cached    bool                         `json:"cached,omitempty"`
	Results   []*models.PersonalizedResult `json:"results"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = s.sessions.Create(req.UserID)
	}

	q := models.SearchQuery{
		Text:        req.Message,
		Limit:       req.Limit,
		Answer:      true,
		SessionID:   req.SessionID,
		UserID:      req.UserID,
		Personalize: req.UserID != "",
	}
	resp, err := s.orch.HandleQuery(r.Context(), &q)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, chatResponse{
		SessionID: req.SessionID,
		Answer:    resp.Answer,
		Cached:    resp.Cached,
		Results:   resp.Results,
	})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit := s.cfg.Search.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := s.recommender.Recommend(r.Context(), userID, limit)
	if err != nil {
		s.logger.Error("recommendations failed", zap.String("user_id", userID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to build recommendations")
		return
	}
	s.respondJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.catalog.Get(id)
	if !ok {
		s.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"products":     s.catalog.Len(),
		"answer_cache": s.cache.Stats(),
		"sessions":     s.sessions.Len(),
		"image_search": s.imageIndex != nil,
	}
	if s.textIndex != nil {
		stats["text_vectors"] = s.textIndex.Size()
	}
	if s.imageIndex != nil {
		stats["image_vectors"] = s.imageIndex.Size()
	}
	s.respondJSON(w, http.StatusOK, stats)
}

type preferencesRequest struct {
	Colors []string `json:"colors"`
	Styles []string `json:"styles"`
}

func (s *Server) handleSetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var req preferencesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.prefs.SetPreferences(r.Context(), userID, req.Colors, req.Styles); err != nil {
		s.logger.Error("set preferences failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save preferences")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	snap, err := s.prefs.GetPreferences(r.Context(), userID)
	if err != nil {
		s.logger.Error("get preferences failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	s.respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleAddFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	productID := chi.URLParam(r, "productID")
	if _, ok := s.catalog.Get(productID); !ok {
		s.respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err := s.prefs.AddFavorite(r.Context(), userID, productID); err != nil {
		s.logger.Error("add favorite failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to save favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	productID := chi.URLParam(r, "productID")
	if err := s.prefs.RemoveFavorite(r.Context(), userID, productID); err != nil {
		s.logger.Error("remove favorite failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to remove favorite")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondPipelineError maps pipeline sentinel errors to HTTP statuses.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrIndexUnavailable):
		s.respondError(w, http.StatusServiceUnavailable, "search index unavailable")
	case errors.Is(err, models.ErrEncodingFailure):
		s.respondError(w, http.StatusBadGateway, "query encoding failed")
	case errors.Is(err, models.ErrGenerationFailure):
		s.respondError(w, http.StatusBadGateway, "answer generation failed")
	default:
		s.logger.Error("query pipeline failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
