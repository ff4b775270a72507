package provision

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/keelworks/vaultward/internal/platform/httpx"
)

// commandTimeout bounds a command's network round-trips independently of the
// front-end request context.
const commandTimeout = 2 * time.Minute

// Handler exposes the chat-facing command endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers command routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/provision", h.provision)
	r.Post("/confirm", h.confirm)
}

type commandRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Operator string `json:"operator" validate:"required"`
}

func (h *Handler) provision(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.ProvisionAccess)
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, h.service.ConfirmAccess)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, run func(ctx context.Context, email, operator string) Result) {
	var req commandRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "request body must be JSON with email and operator")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", "a valid email and an operator are required")
		return
	}

	commandID := uuid.NewString()
	logger := h.logger.With(slog.String("command_id", commandID))
	logger.Info("command received", slog.String("path", r.URL.Path), slog.String("operator", req.Operator))

	// Detached from the request context: the workflow runs to completion even
	// when the front-end interaction expires mid-flight.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), commandTimeout)
	defer cancel()
	result := run(ctx, req.Email, req.Operator)

	if err := r.Context().Err(); err != nil {
		logger.Warn("command completed but the reply is undeliverable", slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusOK, result)
}
