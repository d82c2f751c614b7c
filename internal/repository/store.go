package repository

import (
	"gorm.io/gorm"
)

// Store bundles the four repositories over one database handle. Binding a
// Store to a transaction handle scopes every repository call to that
// transaction, which is how multi-step mutations stay atomic.
type Store struct {
	Mails   MailRepository
	Labels  LabelRepository
	Links   LinkRepository
	Pending PendingOpRepository
}

// NewStore creates a Store over the given database or transaction handle
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Mails:   NewMailRepository(db),
		Labels:  NewLabelRepository(db),
		Links:   NewLinkRepository(db),
		Pending: NewPendingOpRepository(db),
	}
}
