package httpapi

import (
	"net/http"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/user"
	"github.com/poolside-labs/squares-pool/internal/usecase"
)

func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RegisterUser")
	defer span.End()

	var req registerUserRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.userService.Register(ctx, usecase.RegisterUserInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		IsAdmin:   req.IsAdmin,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "register user failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, userToDTO(created))
}

func (h *Handler) SetUserTokens(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetUserTokens")
	defer span.End()

	actorID, err := requireActor(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req setTokensRequest
	if err := h.decodeRequest(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	userID := r.PathValue("userID")
	updated, err := h.userService.SetTokens(ctx, actorID, userID, req.Tokens)
	if err != nil {
		h.logger.WarnContext(ctx, "set user tokens failed",
			"user_id", userID, "actor_id", actorID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, userToDTO(updated))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetUser")
	defer span.End()

	userID := r.PathValue("userID")
	u, err := h.userService.Get(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "get user failed", "user_id", userID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, userToDTO(u))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListUsers")
	defer span.End()

	users, err := h.userService.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list users failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]userDTO, 0, len(users))
	for _, u := range users {
		items = append(items, userToDTO(u))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

type registerUserRequest struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"max=80"`
	Email     string `json:"email" validate:"omitempty,email"`
	IsAdmin   bool   `json:"isAdmin"`
}

type setTokensRequest struct {
	Tokens int `json:"tokens" validate:"min=0"`
}

type userDTO struct {
	ID           string `json:"id"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	DisplayName  string `json:"displayName"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"isAdmin"`
	Tokens       int    `json:"tokens"`
	TokensSpent  int    `json:"tokensSpent"`
	CreatedAtUTC string `json:"createdAtUtc"`
	UpdatedAtUTC string `json:"updatedAtUtc"`
}

func userToDTO(v user.User) userDTO {
	return userDTO{
		ID:           v.ID,
		FirstName:    v.FirstName,
		LastName:     v.LastName,
		DisplayName:  user.DisplayName(v.FirstName, v.LastName),
		Email:        v.Email,
		IsAdmin:      v.IsAdmin,
		Tokens:       v.Tokens,
		TokensSpent:  v.TokensSpent,
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAtUTC: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
