package httpapi

import (
	"context"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/poolside-labs/squares-pool/internal/infrastructure/notify"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

type Handler struct {
	poolService        *usecase.PoolService
	userService        *usecase.UserService
	reservationService *usecase.ReservationService
	lockService        *usecase.LockService
	settlementService  *usecase.SettlementService
	auditService       *usecase.AuditService
	events             *notify.MemoryBroker
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	poolService *usecase.PoolService,
	userService *usecase.UserService,
	reservationService *usecase.ReservationService,
	lockService *usecase.LockService,
	settlementService *usecase.SettlementService,
	auditService *usecase.AuditService,
	events *notify.MemoryBroker,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		poolService:        poolService,
		userService:        userService,
		reservationService: reservationService,
		lockService:        lockService,
		settlementService:  settlementService,
		auditService:       auditService,
		events:             events,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeRequest parses and validates a JSON body in one step. Unknown
// fields are rejected so client typos surface as 400s.
func (h *Handler) decodeRequest(ctx context.Context, r *http.Request, dst any) error {
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return h.validateRequest(ctx, dst)
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func requireActor(ctx context.Context) (string, error) {
	actorID, ok := actorFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("%w: actor is missing from request context", usecase.ErrUnauthorized)
	}
	return actorID, nil
}
