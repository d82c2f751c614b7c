package repository

import (
	"context"
	"fmt"

	"github.com/gmailish/syncd/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository defines the interface for mail-label association data access.
// All removal operations report rows affected instead of failing on absent
// rows: clearing links that do not exist is a valid no-op.
type LinkRepository interface {
	Add(ctx context.Context, mailID, labelID string) (bool, error)
	Remove(ctx context.Context, mailID, labelID string) (int64, error)
	ClearForMail(ctx context.Context, mailID string) (int64, error)
	ClearForLabel(ctx context.Context, labelID string) (int64, error)
	LabelsForMail(ctx context.Context, mailID string) ([]string, error)
	MailsForLabel(ctx context.Context, labelID, ownerID string) ([]models.Mail, error)
}

// linkRepository implements LinkRepository using GORM
type linkRepository struct {
	db *gorm.DB
}

// NewLinkRepository creates a new LinkRepository instance
func NewLinkRepository(db *gorm.DB) LinkRepository {
	return &linkRepository{db: db}
}

// Add inserts a mail-label association. Inserting an existing pair is a
// no-op; the boolean reports whether a new row was actually created.
func (r *linkRepository) Add(ctx context.Context, mailID, labelID string) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		DoNothing: true,
	}).Create(&models.MailLabel{MailID: mailID, LabelID: labelID})
	if result.Error != nil {
		return false, fmt.Errorf("failed to add mail label link: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Remove deletes a single mail-label association
func (r *linkRepository) Remove(ctx context.Context, mailID, labelID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("mail_id = ? AND label_id = ?", mailID, labelID).
		Delete(&models.MailLabel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to remove mail label link: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearForMail deletes every association for a mail
func (r *linkRepository) ClearForMail(ctx context.Context, mailID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("mail_id = ?", mailID).
		Delete(&models.MailLabel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear links for mail: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearForLabel deletes every association for a label
func (r *linkRepository) ClearForLabel(ctx context.Context, labelID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("label_id = ?", labelID).
		Delete(&models.MailLabel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to clear links for label: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// LabelsForMail returns the label ids linked to a mail
func (r *linkRepository) LabelsForMail(ctx context.Context, mailID string) ([]string, error) {
	var labelIDs []string
	result := r.db.WithContext(ctx).
		Model(&models.MailLabel{}).
		Where("mail_id = ?", mailID).
		Order("label_id ASC").
		Pluck("label_id", &labelIDs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get labels for mail: %w", result.Error)
	}
	return labelIDs, nil
}

// MailsForLabel returns the mails linked to a label, newest first,
// optionally filtered by owner (empty ownerID means all owners).
func (r *linkRepository) MailsForLabel(ctx context.Context, labelID, ownerID string) ([]models.Mail, error) {
	var mails []models.Mail
	q := r.db.WithContext(ctx).
		Joins("JOIN mail_labels ml ON ml.mail_id = mails.id").
		Where("ml.label_id = ?", labelID)
	if ownerID != "" {
		q = q.Where("mails.owner_id = ?", ownerID)
	}
	result := q.Order("mails.timestamp DESC").Find(&mails)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get mails for label: %w", result.Error)
	}
	return mails, nil
}
