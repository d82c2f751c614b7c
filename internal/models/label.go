package models

import (
	"strings"
)

// Label represents a mail label. The ID is conventionally the lowercased
// name; (OwnerID, Name) is unique per owner.
type Label struct {
	ID      string `gorm:"primaryKey;size:128" json:"id"`
	OwnerID string `gorm:"size:64;uniqueIndex:idx_labels_owner_name" json:"ownerId"`
	Name    string `gorm:"not null;size:255;uniqueIndex:idx_labels_owner_name" json:"name"`
}

// TableName returns the table name for Label
func (Label) TableName() string {
	return "labels"
}

// Well-known label ids. The category labels are mutually exclusive placement
// slots; the rest may coexist freely on a mail.
const (
	LabelPrimary    = "primary"
	LabelPromotions = "promotions"
	LabelSocial     = "social"
	LabelUpdates    = "updates"
	LabelTrash      = "trash"
	LabelDrafts     = "drafts"
	LabelSpam       = "spam"
	LabelArchive    = "archive"
	LabelImportant  = "important"

	LabelStarred = "starred"
	LabelSent    = "sent"
	LabelOutbox  = "outbox"

	// LabelInboxAlias is accepted on input and always normalized to "primary".
	LabelInboxAlias = "inbox"
)

// NormalizeLabelID folds a raw label to its canonical id: lowercased, with
// the "inbox" alias mapped to "primary". Empty input stays empty.
func NormalizeLabelID(raw string) string {
	l := strings.ToLower(strings.TrimSpace(raw))
	if l == LabelInboxAlias {
		return LabelPrimary
	}
	return l
}

// IsCategoryLabel reports whether a label belongs to the closed set of
// mutually exclusive inbox placement categories. "starred" is not a category.
func IsCategoryLabel(label string) bool {
	switch strings.ToLower(label) {
	case LabelPrimary, LabelInboxAlias, LabelPromotions, LabelSocial,
		LabelUpdates, LabelTrash, LabelDrafts, LabelSpam, LabelArchive, LabelImportant:
		return true
	}
	return false
}
