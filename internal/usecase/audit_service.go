package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/poolside-labs/squares-pool/internal/domain/audit"
	"github.com/poolside-labs/squares-pool/internal/platform/logging"
)

const defaultAuditLimit = 100

// AuditService reads back the activity trail recorded by the write-side
// services.
type AuditService struct {
	log    audit.Log
	logger *logging.Logger
}

func NewAuditService(log audit.Log, logger *logging.Logger) *AuditService {
	if logger == nil {
		logger = logging.Default()
	}
	return &AuditService{log: log, logger: logger}
}

// Recent returns the newest entries across all actors, newest first.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.Recent")
	defer span.End()

	if limit <= 0 {
		limit = defaultAuditLimit
	}
	entries, err := s.log.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// ForUser returns entries where the user is either the actor or the target,
// resolved in a single query, newest first.
func (s *AuditService) ForUser(ctx context.Context, userID string, limit int) ([]audit.Entry, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.AuditService.ForUser")
	defer span.End()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	entries, err := s.log.ListForUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit entries for user: %w", err)
	}
	return entries, nil
}
