package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/gmailish/syncd/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MailRepository defines the interface for mail data access
type MailRepository interface {
	Upsert(ctx context.Context, mail *models.Mail) error
	UpsertAll(ctx context.Context, mails []models.Mail) error
	GetByID(ctx context.Context, id string) (*models.Mail, error)
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Mail, error)
	ListStarredByOwner(ctx context.Context, ownerID string) ([]models.Mail, error)
	Search(ctx context.Context, ownerID, query string) ([]models.Mail, error)
	SetRead(ctx context.Context, id string, read bool) error
	SetStarred(ctx context.Context, id string, starred bool) error
	Delete(ctx context.Context, id string) (int64, error)
}

// mailRepository implements MailRepository using GORM
type mailRepository struct {
	db *gorm.DB
}

// NewMailRepository creates a new MailRepository instance
func NewMailRepository(db *gorm.DB) MailRepository {
	return &mailRepository{db: db}
}

// Upsert inserts a mail or replaces the existing row with the same id
func (r *mailRepository) Upsert(ctx context.Context, mail *models.Mail) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(mail)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert mail: %w", result.Error)
	}
	return nil
}

// UpsertAll inserts or replaces a batch of mails
func (r *mailRepository) UpsertAll(ctx context.Context, mails []models.Mail) error {
	if len(mails) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&mails)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert mails: %w", result.Error)
	}
	return nil
}

// GetByID retrieves a mail by its id
func (r *mailRepository) GetByID(ctx context.Context, id string) (*models.Mail, error) {
	var mail models.Mail
	result := r.db.WithContext(ctx).First(&mail, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get mail by id: %w", result.Error)
	}
	return &mail, nil
}

// ListByOwner retrieves mails for an owner, newest first
func (r *mailRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]models.Mail, error) {
	var mails []models.Mail
	q := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	if err := q.Find(&mails).Error; err != nil {
		return nil, fmt.Errorf("failed to list mails: %w", err)
	}
	return mails, nil
}

// ListStarredByOwner retrieves starred mails for an owner, newest first
func (r *mailRepository) ListStarredByOwner(ctx context.Context, ownerID string) ([]models.Mail, error) {
	var mails []models.Mail
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND starred = ?", ownerID, true).
		Order("timestamp DESC").
		Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list starred mails: %w", result.Error)
	}
	return mails, nil
}

// Search performs a LIKE match over subject, content and sender name
func (r *mailRepository) Search(ctx context.Context, ownerID, query string) ([]models.Mail, error) {
	like := "%" + query + "%"
	var mails []models.Mail
	result := r.db.WithContext(ctx).
		Where("owner_id = ? AND (subject LIKE ? OR content LIKE ? OR sender_name LIKE ?)",
			ownerID, like, like, like).
		Order("timestamp DESC").
		Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search mails: %w", result.Error)
	}
	return mails, nil
}

// SetRead updates the read flag for a mail
func (r *mailRepository) SetRead(ctx context.Context, id string, read bool) error {
	result := r.db.WithContext(ctx).Model(&models.Mail{}).Where("id = ?", id).Update("read", read)
	if result.Error != nil {
		return fmt.Errorf("failed to set mail read flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStarred updates the starred flag for a mail
func (r *mailRepository) SetStarred(ctx context.Context, id string, starred bool) error {
	result := r.db.WithContext(ctx).Model(&models.Mail{}).Where("id = ?", id).Update("starred", starred)
	if result.Error != nil {
		return fmt.Errorf("failed to set mail starred flag: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a mail row. It returns the number of rows removed; zero
// means the mail was already gone, which callers treat as success.
func (r *mailRepository) Delete(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Mail{}, "id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete mail: %w", result.Error)
	}
	return result.RowsAffected, nil
}
