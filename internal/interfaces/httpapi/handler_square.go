package httpapi

import (
	"net/http"
	"strings"

	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func (h *Handler) ClaimSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClaimSquare")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req squareRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	balance, err := h.reservationService.ClaimSquare(ctx, poolID, actorID, req.Row, req.Col)
	if err != nil {
		h.logger.WarnContext(ctx, "claim square failed",
			"pool_id", poolID, "actor_id", actorID, "row", req.Row, "col", req.Col, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, balanceDTO{Tokens: balance})
}

func (h *Handler) ReleaseSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReleaseSquare")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req squareRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	balance, err := h.reservationService.ReleaseSquare(ctx, poolID, actorID, req.Row, req.Col)
	if err != nil {
		h.logger.WarnContext(ctx, "release square failed",
			"pool_id", poolID, "actor_id", actorID, "row", req.Row, "col", req.Col, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, balanceDTO{Tokens: balance})
}

func (h *Handler) AssignSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AssignSquare")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req assignSquareRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	balance, err := h.reservationService.AdminAssign(ctx, poolID, actorID, req.UserID, req.Row, req.Col)
	if err != nil {
		h.logger.WarnContext(ctx, "assign square failed",
			"pool_id", poolID, "actor_id", actorID, "user_id", req.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, balanceDTO{Tokens: balance})
}

func (h *Handler) ClearSquare(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearSquare")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req squareRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	if err := h.reservationService.AdminClear(ctx, poolID, actorID, req.Row, req.Col); err != nil {
		h.logger.WarnContext(ctx, "clear square failed",
			"pool_id", poolID, "actor_id", actorID, "row", req.Row, "col", req.Col, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "cleared"})
}

// RandomAssign draws squares for the actor, or for another user when an
// admin names one in the payload.
func (h *Handler) RandomAssign(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RandomAssign")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req randomAssignRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	targetUserID := strings.TrimSpace(req.UserID)
	if targetUserID == "" {
		targetUserID = actorID
	}

	poolID := r.PathValue("poolID")
	result, err := h.reservationService.RandomAssign(ctx, usecase.RandomAssignInput{
		PoolID:           poolID,
		TargetUserID:     targetUserID,
		Count:            req.Count,
		ActorID:          actorID,
		InitiatedByAdmin: targetUserID != actorID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "random assign failed",
			"pool_id", poolID, "actor_id", actorID, "user_id", targetUserID,
			"count", req.Count, "error", err)
		writeError(ctx, w, err)
		return
	}

	cells := make([]cellDTO, 0, len(result.Cells))
	for _, cell := range result.Cells {
		cells = append(cells, cellDTO{Row: cell.Row, Col: cell.Col})
	}
	writeSuccess(ctx, w, http.StatusOK, randomAssignDTO{
		Cells:  cells,
		Tokens: result.NewBalance,
	})
}

type squareRequest struct {
	Row int `json:"row" validate:"min=0,max=9"`
	Col int `json:"col" validate:"min=0,max=9"`
}

type assignSquareRequest struct {
	UserID string `json:"userId" validate:"required"`
	Row    int    `json:"row" validate:"min=0,max=9"`
	Col    int    `json:"col" validate:"min=0,max=9"`
}

type randomAssignRequest struct {
	UserID string `json:"userId"`
	Count  int    `json:"count" validate:"required,min=1,max=100"`
}

type balanceDTO struct {
	Tokens int `json:"tokens"`
}

type cellDTO struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type randomAssignDTO struct {
	Cells  []cellDTO `json:"cells"`
	Tokens int       `json:"tokens"`
}
