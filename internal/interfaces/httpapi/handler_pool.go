package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/pool"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func (h *Handler) CreatePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreatePool")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createPoolRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	startTime, err := parseOptionalTime(req.StartTime)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.poolService.Create(ctx, usecase.CreatePoolInput{
		Name:            req.Name,
		TokensPerSquare: req.TokensPerSquare,
		StartTime:       startTime,
		AdminID:         actorID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create pool failed", "actor_id", actorID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, poolToDTO(created))
}

func (h *Handler) ListPools(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListPools")
	defer span.End()

	pools, err := h.poolService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list pools failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]poolDTO, 0, len(pools))
	for _, p := range pools {
		items = append(items, poolToDTO(p))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetPool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPool")
	defer span.End()

	poolID := r.PathValue("poolID")
	p, err := h.poolService.Get(ctx, poolID)
	if err != nil {
		h.logger.WarnContext(ctx, "get pool failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(p))
}

func (h *Handler) DeletePool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DeletePool")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	if err := h.poolService.Delete(ctx, poolID, actorID); err != nil {
		h.logger.WarnContext(ctx, "delete pool failed", "pool_id", poolID, "actor_id", actorID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) SetPoolStartTime(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetPoolStartTime")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req setStartTimeRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	startTime, err := parseOptionalTime(req.StartTime)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	updated, err := h.poolService.SetStartTime(ctx, poolID, actorID, startTime)
	if err != nil {
		h.logger.WarnContext(ctx, "set pool start time failed", "pool_id", poolID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(updated))
}

func (h *Handler) LockPool(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LockPool")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	locked, err := h.lockService.Lock(ctx, poolID, actorID)
	if err != nil {
		h.logger.WarnContext(ctx, "lock pool failed", "pool_id", poolID, "actor_id", actorID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, poolToDTO(locked))
}

func (h *Handler) RecordScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RecordScore")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req recordScoreRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	quarter := pool.Quarter(strings.ToLower(r.PathValue("quarter")))
	result, err := h.settlementService.RecordScore(ctx, usecase.RecordScoreInput{
		PoolID:  poolID,
		Quarter: quarter,
		Home:    req.Home,
		Away:    req.Away,
		Confirm: req.Confirm,
		AdminID: actorID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "record score failed",
			"pool_id", poolID, "quarter", string(quarter), "error", err)
		writeError(ctx, w, err)
		return
	}

	dto := scoreResultDTO{Resolved: result.Resolved}
	if result.Resolved {
		dto.Winner = result.Winner
		dto.Row = &result.Row
		dto.Col = &result.Col
	}
	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) ReopenScore(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ReopenScore")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	poolID := r.PathValue("poolID")
	quarter := pool.Quarter(strings.ToLower(r.PathValue("quarter")))
	if err := h.settlementService.EditScore(ctx, poolID, actorID, quarter); err != nil {
		h.logger.WarnContext(ctx, "reopen score failed",
			"pool_id", poolID, "quarter", string(quarter), "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "reopened"})
}

type createPoolRequest struct {
	Name            string `json:"name" validate:"required,max=120"`
	TokensPerSquare int    `json:"tokensPerSquare" validate:"required,min=1"`
	StartTime       string `json:"startTime" validate:"omitempty"`
}

type setStartTimeRequest struct {
	StartTime string `json:"startTime" validate:"omitempty"`
}

type recordScoreRequest struct {
	Home    int  `json:"home" validate:"min=0"`
	Away    int  `json:"away" validate:"min=0"`
	Confirm bool `json:"confirm"`
}

type scoreResultDTO struct {
	Resolved bool   `json:"resolved"`
	Winner   string `json:"winner,omitempty"`
	Row      *int   `json:"row,omitempty"`
	Col      *int   `json:"col,omitempty"`
}

type occupancyDTO struct {
	UserID    string `json:"userId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type scoreEntryDTO struct {
	Home      int  `json:"home"`
	Away      int  `json:"away"`
	Confirmed bool `json:"confirmed"`
}

type winnerDTO struct {
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Winner string `json:"winner"`
}

type poolDTO struct {
	ID              string                   `json:"id"`
	Name            string                   `json:"name"`
	TokensPerSquare int                      `json:"tokensPerSquare"`
	Prize           int                      `json:"prize"`
	Grid            []*occupancyDTO          `json:"grid"`
	FilledCount     int                      `json:"filledCount"`
	TopNumbers      []int                    `json:"topNumbers,omitempty"`
	SideNumbers     []int                    `json:"sideNumbers,omitempty"`
	IsLocked        bool                     `json:"isLocked"`
	IsComplete      bool                     `json:"isComplete"`
	StartTime       string                   `json:"startTime,omitempty"`
	Scores          map[string]scoreEntryDTO `json:"scores"`
	WinningSquares  map[string]winnerDTO     `json:"winningSquares"`
	CreatedAtUTC    string                   `json:"createdAtUtc"`
	UpdatedAtUTC    string                   `json:"updatedAtUtc"`
}

func poolToDTO(p pool.Pool) poolDTO {
	grid := make([]*occupancyDTO, len(p.Grid))
	for i, cell := range p.Grid {
		if cell == nil {
			continue
		}
		grid[i] = &occupancyDTO{
			UserID:    cell.UserID,
			FirstName: cell.FirstName,
			LastName:  cell.LastName,
		}
	}

	scores := make(map[string]scoreEntryDTO, len(p.Scores))
	for q, entry := range p.Scores {
		scores[string(q)] = scoreEntryDTO{
			Home:      entry.Home,
			Away:      entry.Away,
			Confirmed: entry.Confirmed,
		}
	}

	winners := make(map[string]winnerDTO, len(p.WinningSquares))
	for q, record := range p.WinningSquares {
		winners[string(q)] = winnerDTO{
			Row:    record.Row,
			Col:    record.Col,
			Winner: record.Winner,
		}
	}

	dto := poolDTO{
		ID:              p.ID,
		Name:            p.Name,
		TokensPerSquare: p.TokensPerSquare,
		Prize:           p.Prize(),
		Grid:            grid,
		FilledCount:     p.FilledCount(),
		IsLocked:        p.IsLocked,
		IsComplete:      p.Completed(),
		Scores:          scores,
		WinningSquares:  winners,
		CreatedAtUTC:    p.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAtUTC:    p.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if p.IsLocked {
		dto.TopNumbers = append([]int(nil), p.TopNumbers...)
		dto.SideNumbers = append([]int(nil), p.SideNumbers...)
	}
	if p.StartTime != nil {
		dto.StartTime = p.StartTime.UTC().Format(time.RFC3339)
	}
	return dto
}

// parseOptionalTime treats an empty string as no value, clearing any
// previously set start time.
func parseOptionalTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: start time must be RFC 3339: %v", usecase.ErrInvalidInput, err)
	}
	return &t, nil
}
