package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"atatek/internal/tree/models"
	dErrors "atatek/pkg/domain-errors"
	"atatek/pkg/platform/httputil"
	"atatek/pkg/requestcontext"
)

// Service defines the interface for tree operations.
type Service interface {
	ListChildren(ctx context.Context, nodeID, userID int64) ([]models.Child, error)
	GetNodeDetail(ctx context.Context, nodeID int64) (*models.NodeDetail, error)
	DeleteNode(ctx context.Context, nodeID int64) error
	RestoreNode(ctx context.Context, nodeID int64) error
	SearchByName(ctx context.Context, query string, ancestorFilter *int64) ([]models.SearchResult, error)
}

// Handler handles tree endpoints.
type Handler struct {
	logger *slog.Logger
	tree   Service
}

// New creates a new tree Handler.
func New(tree Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		tree:   tree,
	}
}

// Register registers the tree routes with the chi router. Callers attach
// authentication middleware to r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/tree", h.handleListChildren)
	r.Get("/tree/search", h.handleSearch)
	r.Get("/tree/node/{id}", h.handleGetNode)
	r.Delete("/tree/node/{id}", h.handleDeleteNode)
	r.Put("/tree/node/{id}", h.handleRestoreNode)
}

func (h *Handler) handleListChildren(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodeID, err := parseID(r.URL.Query().Get("node_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "node_id must be a positive integer"))
		return
	}

	children, err := h.tree.ListChildren(ctx, nodeID, requestcontext.UserID(ctx))
	if err != nil {
		h.fail(ctx, w, err, "list children", nodeID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, children)
}

func (h *Handler) handleGetNode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nodeID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a positive integer"))
		return
	}

	detail, err := h.tree.GetNodeDetail(ctx, nodeID)
	if err != nil {
		h.fail(ctx, w, err, "get node", nodeID)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	h.handleVisibility(w, r, "delete node", h.tree.DeleteNode)
}

func (h *Handler) handleRestoreNode(w http.ResponseWriter, r *http.Request) {
	h.handleVisibility(w, r, "restore node", h.tree.RestoreNode)
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request, op string, apply func(context.Context, int64) error) {
	ctx := r.Context()
	nodeID, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "id must be a positive integer"))
		return
	}
	if err := apply(ctx, nodeID); err != nil {
		h.fail(ctx, w, err, op, nodeID)
		return
	}
	h.logger.InfoContext(ctx, op,
		"request_id", requestcontext.RequestID(ctx),
		"node_id", nodeID,
		"user_id", requestcontext.UserID(ctx),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter *int64
	if raw := q.Get("ancestor_id"); raw != "" {
		id, err := parseID(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ancestor_id must be a positive integer"))
			return
		}
		filter = &id
	}

	results, err := h.tree.SearchByName(ctx, q.Get("query"), filter)
	if err != nil {
		h.fail(ctx, w, err, "search", 0)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, results)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, err error, op string, nodeID int64) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"node_id", nodeID,
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
