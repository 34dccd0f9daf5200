package dashboard

import (
	"log"

	reviewapp "github.com/MiroDojkic/surveygizmo-dashboard/internal/review/application"
	"github.com/go-chi/chi/v5"
)

// Handler wires dashboard HTTP endpoints to review application services.
type Handler struct {
	logger     *log.Logger
	approvals  reviewapp.ApprovalService
	rejections reviewapp.RejectionService
	queries    reviewapp.ResponseQueryService
}

// Config provides dependencies for Handler.
type Config struct {
	Logger     *log.Logger
	Approvals  reviewapp.ApprovalService
	Rejections reviewapp.RejectionService
	Queries    reviewapp.ResponseQueryService
}

// NewHandler constructs a dashboard HTTP handler set.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		logger:     cfg.Logger,
		approvals:  cfg.Approvals,
		rejections: cfg.Rejections,
		queries:    cfg.Queries,
	}
}

// Register mounts dashboard routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/responses", h.responseListHandler())
	r.Get("/responses/{id}", h.responseDetailHandler())
	r.Post("/responses/{responseId}/approve", h.approveResponseHandler())
	r.Post("/responses/{responseId}/reject", h.rejectResponseHandler())
}
