package service

import (
	"context"

	"github.com/omada-guest/backend/internal/model"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

type AuditRepo interface {
	InsertGuestEvent(ctx context.Context, event model.GuestEvent) (int64, error)
	ListGuestEvents(ctx context.Context, limit int) ([]model.GuestEvent, error)
}

// AuditService records guest lifecycle events in the audit store.
type AuditService struct {
	repo AuditRepo
}

func NewAuditService(repo AuditRepo) *AuditService {
	return &AuditService{repo: repo}
}

// RecordGuestEvent implements AuditRecorder.
func (s *AuditService) RecordGuestEvent(ctx context.Context, event model.GuestEvent) error {
	_, err := s.repo.InsertGuestEvent(ctx, event)
	return err
}

// ListEvents returns the most recent events, newest first.
func (s *AuditService) ListEvents(ctx context.Context, limit int) ([]model.GuestEvent, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}
	events, err := s.repo.ListGuestEvents(ctx, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.GuestEvent{}
	}
	return events, nil
}
