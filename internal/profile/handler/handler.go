package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"atatek/internal/profile/models"
	dErrors "atatek/pkg/domain-errors"
	"atatek/pkg/platform/httputil"
	"atatek/pkg/requestcontext"
)

// Service defines the interface for profile operations.
type Service interface {
	Get(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateName(ctx context.Context, userID int64, name models.NameUpdate) (*models.Profile, error)
	AssignPage(ctx context.Context, userID, pageID int64) error
	RequestCode(ctx context.Context, userID int64) error
	VerifyCode(ctx context.Context, userID int64, code string) (bool, error)
}

type Handler struct {
	logger   *slog.Logger
	profiles Service
}

func New(profiles Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, profiles: profiles}
}

// Register registers the profile routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/profile/me", h.handleGetMe)
	r.Patch("/profile/me", h.handleUpdateName)
	r.Put("/profile/me/page", h.handleAssignPage)
	r.Post("/profile/me/code", h.handleRequestCode)
	r.Post("/profile/me/verify", h.handleVerify)
	r.Get("/profile/{id}", h.handleGet)
}

type assignPageRequest struct {
	PageID int64 `json:"page_id"`
}

type verifyRequest struct {
	Code string `json:"code"`
}

type verifyResponse struct {
	Verified bool `json:"verified"`
}

func (h *Handler) handleGetMe(w http.ResponseWriter, r *http.Request) {
	h.writeProfile(w, r, requestcontext.UserID(r.Context()))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a positive integer"))
		return
	}
	h.writeProfile(w, r, id)
}

func (h *Handler) writeProfile(w http.ResponseWriter, r *http.Request, userID int64) {
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdateName(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.NameUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid update name request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	p, err := h.profiles.UpdateName(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleAssignPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req assignPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := h.profiles.AssignPage(ctx, requestcontext.UserID(ctx), req.PageID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.profiles.RequestCode(ctx, requestcontext.UserID(ctx)); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "code is required"))
		return
	}
	ok, err := h.profiles.VerifyCode(ctx, requestcontext.UserID(ctx), req.Code)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verifyResponse{Verified: ok})
}
