package task

import (
	"context"
	"log/slog"
	"time"
)

// AuditedService logs every call made through the Service interface.
// It wraps another Service and adds no behavior of its own.
type AuditedService struct {
	next   Service
	logger *slog.Logger
}

var _ Service = (*AuditedService)(nil)

// NewAuditedService wraps next with audit logging
func NewAuditedService(next Service, logger *slog.Logger) *AuditedService {
	return &AuditedService{
		next:   next,
		logger: logger.With("component", "task_audit"),
	}
}

// Submit logs the submission and its outcome
func (s *AuditedService) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	start := time.Now()
	id, err := s.next.Submit(ctx, req)
	if err != nil {
		s.logger.WarnContext(ctx, "audit: submit rejected",
			"task_type", req.Type,
			"owner_id", req.OwnerID,
			"priority", req.Priority.String(),
			"error", err,
			"duration", time.Since(start))
		return "", err
	}
	s.logger.InfoContext(ctx, "audit: submit",
		"task_id", id,
		"task_type", req.Type,
		"owner_id", req.OwnerID,
		"priority", req.Priority.String(),
		"duration", time.Since(start))
	return id, nil
}

// GetProgress logs progress lookups at debug level
func (s *AuditedService) GetProgress(id string) (ProgressRecord, error) {
	rec, err := s.next.GetProgress(id)
	s.logger.Debug("audit: get progress", "task_id", id, "found", err == nil)
	return rec, err
}

// GetResult logs result lookups at debug level
func (s *AuditedService) GetResult(id string) (ResultRecord, error) {
	rec, err := s.next.GetResult(id)
	s.logger.Debug("audit: get result", "task_id", id, "found", err == nil)
	return rec, err
}

// Cancel logs cancellation requests
func (s *AuditedService) Cancel(id string) bool {
	delivered := s.next.Cancel(id)
	s.logger.Info("audit: cancel", "task_id", id, "delivered", delivered)
	return delivered
}

// QueueStats passes through without logging
func (s *AuditedService) QueueStats() Stats {
	return s.next.QueueStats()
}

// ListByOwner logs owner listings at debug level
func (s *AuditedService) ListByOwner(ownerID string) []ProgressRecord {
	recs := s.next.ListByOwner(ownerID)
	s.logger.Debug("audit: list by owner", "owner_id", ownerID, "count", len(recs))
	return recs
}
