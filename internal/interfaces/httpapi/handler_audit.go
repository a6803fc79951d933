package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func (h *Handler) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListAuditEntries")
	defer span.End()

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entries, err := h.auditService.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audit entries failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auditEntriesToDTO(entries))
}

func (h *Handler) ListUserAuditEntries(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListUserAuditEntries")
	defer span.End()

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	userID := r.PathValue("userID")
	entries, err := h.auditService.ForUser(ctx, userID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list user audit entries failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, auditEntriesToDTO(entries))
}

type auditEntryDTO struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	ActorID       string `json:"actorId,omitempty"`
	TargetID      string `json:"targetId,omitempty"`
	Detail        string `json:"detail"`
	OccurredAtUTC string `json:"occurredAtUtc"`
}

func auditEntriesToDTO(entries []audit.Entry) []auditEntryDTO {
	items := make([]auditEntryDTO, 0, len(entries))
	for _, e := range entries {
		items = append(items, auditEntryDTO{
			ID:            e.ID,
			Kind:          string(e.Kind),
			ActorID:       e.ActorID,
			TargetID:      e.TargetID,
			Detail:        e.Detail,
			OccurredAtUTC: e.OccurredAt.UTC().Format(time.RFC3339),
		})
	}
	return items
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("%w: limit must be a positive integer", usecase.ErrInvalidInput)
	}
	return limit, nil
}
