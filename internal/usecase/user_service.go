package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/domain/user"
	idgen "github.com/poolside-labs/squares-pool/internal/platform/id"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
)

// UserService manages participant accounts and the admin-only token grants
// that fund claims.
type UserService struct {
	store  EntityStore
	trail  auditTrail
	idGen  idgen.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewUserService(
	store EntityStore,
	recorder audit.Recorder,
	idGen idgen.Generator,
	logger *logging.Logger,
) *UserService {
	if logger == nil {
		logger = logging.Default()
	}
	return &UserService{
		store:  store,
		trail:  newAuditTrail(recorder, idGen, logger, time.Now),
		idGen:  idGen,
		logger: logger,
		now:    time.Now,
	}
}

type RegisterUserInput struct {
	FirstName string
	LastName  string
	Email     string
	IsAdmin   bool
}

// Register creates a participant with a zero token balance. Balances only
// move through SetTokens and refunds.
func (s *UserService) Register(ctx context.Context, input RegisterUserInput) (user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.Register")
	defer span.End()

	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.TrimSpace(input.Email)
	if input.FirstName == "" {
		return user.User{}, fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}

	id, err := s.idGen.NewID()
	if err != nil {
		return user.User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := s.now().UTC()
	u := user.User{
		ID:        id,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		IsAdmin:   input.IsAdmin,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.ValidateBasic(); err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	err = s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		txn.PutUser(u)
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	s.trail.record(ctx, audit.EventUserRegistered, u.ID, u.ID,
		fmt.Sprintf("Registered %s", user.DisplayName(u.FirstName, u.LastName)))
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)

	return u, nil
}

// SetTokens replaces a user's balance with an absolute value. Admin only.
func (s *UserService) SetTokens(ctx context.Context, adminID, targetUserID string, tokens int) (user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.SetTokens")
	defer span.End()

	adminID = strings.TrimSpace(adminID)
	targetUserID = strings.TrimSpace(targetUserID)
	if targetUserID == "" {
		return user.User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if tokens < 0 {
		return user.User{}, fmt.Errorf("%w: token balance must be non-negative", ErrInvalidInput)
	}

	var (
		committed user.User
		previous  int
	)
	err := s.store.RunTransaction(ctx, func(ctx context.Context, txn Txn) error {
		if err := requireAdmin(ctx, txn, adminID); err != nil {
			return err
		}
		u, ok, err := txn.User(ctx, targetUserID)
		if err != nil {
			return fmt.Errorf("read user: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: user %s", ErrNotFound, targetUserID)
		}
		previous = u.Tokens
		u.Tokens = tokens
		u.UpdatedAt = s.now().UTC()
		txn.PutUser(u)
		committed = u
		return nil
	})
	if err != nil {
		return user.User{}, err
	}

	s.trail.record(ctx, audit.EventTokensAdjusted, adminID, targetUserID,
		fmt.Sprintf("Set tokens for %s: %d -> %d",
			user.DisplayName(committed.FirstName, committed.LastName), previous, tokens))
	s.logger.InfoContext(ctx, "user tokens set",
		"user_id", targetUserID, "previous", previous, "tokens", tokens)

	return committed, nil
}

// Get returns a snapshot of one user.
func (s *UserService) Get(ctx context.Context, userID string) (user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.Get")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return user.User{}, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	u, ok, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return user.User{}, fmt.Errorf("read user: %w", err)
	}
	if !ok {
		return user.User{}, fmt.Errorf("%w: user %s", ErrNotFound, userID)
	}
	return u, nil
}

// List returns snapshots of every user.
func (s *UserService) List(ctx context.Context) ([]user.User, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.UserService.List")
	defer span.End()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
