package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmailish/syncd/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LabelRepository defines the interface for label data access
type LabelRepository interface {
	Upsert(ctx context.Context, label *models.Label) error
	UpsertAll(ctx context.Context, labels []models.Label) error
	GetByID(ctx context.Context, id string) (*models.Label, error)
	GetByName(ctx context.Context, ownerID, name string) (*models.Label, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Label, error)
	Delete(ctx context.Context, id string) (int64, error)
}

// labelRepository implements LabelRepository using GORM
type labelRepository struct {
	db *gorm.DB
}

// NewLabelRepository creates a new LabelRepository instance
func NewLabelRepository(db *gorm.DB) LabelRepository {
	return &labelRepository{db: db}
}

// Upsert inserts a label or replaces the existing row with the same id
func (r *labelRepository) Upsert(ctx context.Context, label *models.Label) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(label)
	if result.Error != nil {
		if isDuplicateKeyError(result.Error) {
			return ErrDuplicateEntry
		}
		return fmt.Errorf("failed to upsert label: %w", result.Error)
	}
	return nil
}

// UpsertAll inserts or replaces a batch of labels
func (r *labelRepository) UpsertAll(ctx context.Context, labels []models.Label) error {
	if len(labels) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&labels)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert labels: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a label by its id
func (r *labelRepository) GetByID(ctx context.Context, id string) (*models.Label, error) {
	var label models.Label
	result := r.db.WithContext(ctx).First(&label, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get label by id: %w", result.Error)
	}
	return &label, nil
}

// GetByName retrieves a label by its owner and display name
func (r *labelRepository) GetByName(ctx context.Context, ownerID, name string) (*models.Label, error) {
	var label models.Label
	result := r.db.WithContext(ctx).First(&label, "owner_id = ? AND name = ?", ownerID, name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get label by name: %w", result.Error)
	}
	return &label, nil
}

// ListByOwner retrieves all labels for an owner, ordered by name
func (r *labelRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Label, error) {
	var labels []models.Label
	result := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("name ASC").
		Find(&labels)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list labels: %w", result.Error)
	}
	return labels, nil
}

// Delete removes a label row, returning the number of rows removed.
// Zero rows is not an error: the label may already be gone.
func (r *labelRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Label{}, "id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete label: %w", result.Error)
	}
	return result.RowsAffected, nil
}
