package repository

import (
	"context"
	"fmt"

	"github.com/gmailish/syncd/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PendingOpRepository defines the interface for the durable operation queue
type PendingOpRepository interface {
	Enqueue(ctx context.Context, op *models.PendingOperation) error
	ListPending(ctx context.Context) ([]models.PendingOperation, error)
	MarkDone(ctx context.Context, id string) error
	IncrementRetry(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) (int64, error)
	CountByStatus(ctx context.Context) (map[models.OperationStatus]int64, error)
}

// pendingOpRepository implements PendingOpRepository using GORM
type pendingOpRepository struct {
	db *gorm.DB
}

// NewPendingOpRepository creates a new PendingOpRepository instance
func NewPendingOpRepository(db *gorm.DB) PendingOpRepository {
	return &pendingOpRepository{db: db}
}

// Enqueue appends an operation to the queue
func (r *pendingOpRepository) Enqueue(ctx context.Context, op *models.PendingOperation) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(op)
	if result.Error != nil {
		return fmt.Errorf("failed to enqueue pending operation: %w", result.Error)
	}
	return nil
}

// ListPending returns all PENDING operations in oldest-first replay order
func (r *pendingOpRepository) ListPending(ctx context.Context) ([]models.PendingOperation, error) {
	var ops []models.PendingOperation
	result := r.db.WithContext(ctx).
		Where("status = ?", models.StatusPending).
		Order("created_at ASC").
		Find(&ops)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list pending operations: %w", result.Error)
	}
	return ops, nil
}

// MarkDone transitions an operation to DONE
func (r *pendingOpRepository) MarkDone(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PendingOperation{}).
		Where("id = ?", id).
		Update("status", models.StatusDone)
	if result.Error != nil {
		return fmt.Errorf("failed to mark operation done: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementRetry bumps the retry counter, leaving the operation PENDING
func (r *pendingOpRepository) IncrementRetry(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Model(&models.PendingOperation{}).
		Where("id = ?", id).
		Update("retry_count", gorm.Expr("retry_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment retry count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an operation outright. Permanently failed operations carry
// no retry value, so the row is dropped rather than parked as FAILED.
func (r *pendingOpRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.PendingOperation{}, "id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete pending operation: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// CountByStatus reports queue depth per status
func (r *pendingOpRepository) CountByStatus(ctx context.Context) (map[models.OperationStatus]int64, error) {
	type statusCount struct {
		Status models.OperationStatus
		Count  int64
	}
	var rows []statusCount
	result := r.db.WithContext(ctx).
		Model(&models.PendingOperation{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count pending operations: %w", result.Error)
	}
	counts := make(map[models.OperationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
