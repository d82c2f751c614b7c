// Package cache applies user-facing intents to the local store and, where an
// intent has a remote counterpart, records it in the pending operation queue.
// Multi-step mutations run inside a single transaction together with their
// enqueue, so a crash leaves either both the local change and the queue entry
// or neither.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gmailish/syncd/internal/logger"
	"github.com/gmailish/syncd/internal/models"
	"github.com/gmailish/syncd/internal/repository"
	"gorm.io/gorm"
)

// Mutator translates local mutations into store writes and queue entries.
// Operations are synchronous and expect single-writer discipline: only one
// mutator or reconciler pass may run at a time.
type Mutator struct {
	db  *gorm.DB
	log *logger.SyncLogger
}

// NewMutator creates a Mutator over the given database handle
func NewMutator(db *gorm.DB, log *logger.SyncLogger) *Mutator {
	return &Mutator{db: db, log: log}
}

// DraftInput carries the fields of a draft save. Nil pointer fields preserve
// the stored value on update; non-nil fields override it.
type DraftInput struct {
	DraftID   string
	OwnerID   string
	To        *string
	Subject   *string
	Content   *string
	Timestamp *time.Time
}

// transact runs fn against a Store bound to one transaction
func (m *Mutator) transact(ctx context.Context, fn func(s *repository.Store) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repository.NewStore(tx))
	})
}

// ensureLabel upserts the canonical label row for (owner, name) and returns
// its id. An empty name is a no-op returning an empty id.
func ensureLabel(ctx context.Context, s *repository.Store, ownerID, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	id := models.NormalizeLabelID(name)
	if err := s.Labels.Upsert(ctx, &models.Label{ID: id, OwnerID: ownerID, Name: name}); err != nil {
		return "", err
	}
	return id, nil
}

// EnsureLabel creates the label for (owner, name) if missing and returns its
// canonical id. Calling it repeatedly leaves exactly one row.
func (m *Mutator) EnsureLabel(ctx context.Context, ownerID, name string) (string, error) {
	var id string
	err := m.transact(ctx, func(s *repository.Store) error {
		var err error
		id, err = ensureLabel(ctx, s, ownerID, name)
		return err
	})
	return id, err
}

// AddLabelLink ensures the label exists and links it to the mail. The
// nameFallback is used as display name when the caller only has an id.
func (m *Mutator) AddLabelLink(ctx context.Context, mailID, labelID, ownerID, nameFallback string) error {
	if nameFallback == "" {
		nameFallback = labelID
	}
	return m.transact(ctx, func(s *repository.Store) error {
		id, err := ensureLabel(ctx, s, ownerID, nameFallback)
		if err != nil {
			return err
		}
		if id == "" {
			id = models.NormalizeLabelID(labelID)
		}
		_, err = s.Links.Add(ctx, mailID, id)
		return err
	})
}

// RemoveLabelLink removes one mail-label association. A link that is already
// gone counts as success.
func (m *Mutator) RemoveLabelLink(ctx context.Context, mailID, labelID string) error {
	return m.transact(ctx, func(s *repository.Store) error {
		_, err := s.Links.Remove(ctx, mailID, models.NormalizeLabelID(labelID))
		return err
	})
}

// moveMail strips every category label except "starred" from the mail and
// links the normalized target instead. Returns the removed label ids.
func moveMail(ctx context.Context, s *repository.Store, mailID, ownerID, targetRaw string) ([]string, error) {
	target := models.NormalizeLabelID(targetRaw)
	if target == "" {
		return []string{}, nil
	}
	if _, err := ensureLabel(ctx, s, ownerID, targetRaw); err != nil {
		return nil, err
	}

	current, err := s.Links.LabelsForMail(ctx, mailID)
	if err != nil {
		return nil, err
	}

	removed := []string{}
	for _, label := range current {
		if strings.EqualFold(label, models.LabelStarred) {
			continue
		}
		if !models.IsCategoryLabel(label) {
			continue
		}
		normalized := models.NormalizeLabelID(label)
		if _, err := s.Links.Remove(ctx, mailID, normalized); err != nil {
			return nil, err
		}
		if normalized != target {
			removed = append(removed, normalized)
		}
	}

	if _, err := s.Links.Add(ctx, mailID, target); err != nil {
		return nil, err
	}
	return removed, nil
}

// MoveMail places a mail into the target inbox category, removing every other
// category label while preserving "starred" and any non-category labels.
// Repeating the same move converges to the same link set.
func (m *Mutator) MoveMail(ctx context.Context, mailID, ownerID, targetRaw string) ([]string, error) {
	var removed []string
	err := m.transact(ctx, func(s *repository.Store) error {
		var err error
		removed, err = moveMail(ctx, s, mailID, ownerID, targetRaw)
		return err
	})
	return removed, err
}

// ReplaceMailLabels clears the mail's link set and re-adds exactly the given
// labels, creating any that are missing. Full-replace semantics for syncing
// an authoritative remote label set.
func (m *Mutator) ReplaceMailLabels(ctx context.Context, mailID string, labelIDs []string, ownerID string) error {
	return m.transact(ctx, func(s *repository.Store) error {
		labels := make([]models.Label, 0, len(labelIDs))
		for _, id := range labelIDs {
			labels = append(labels, models.Label{ID: id, OwnerID: ownerID, Name: id})
		}
		if err := s.Labels.UpsertAll(ctx, labels); err != nil {
			return err
		}
		if _, err := s.Links.ClearForMail(ctx, mailID); err != nil {
			return err
		}
		for _, id := range labelIDs {
			if _, err := s.Links.Add(ctx, mailID, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertDraft saves or partially updates a draft. A missing draft id creates
// a new row under "draft-<uuid>". The row is always written with the draft
// flag set and linked to the "drafts" label.
func (m *Mutator) UpsertDraft(ctx context.Context, in DraftInput) (string, error) {
	draftID := in.DraftID
	if draftID == "" {
		draftID = "draft-" + uuid.NewString()
	}

	err := m.transact(ctx, func(s *repository.Store) error {
		existing, err := s.Mails.GetByID(ctx, draftID)
		if err != nil && err != repository.ErrNotFound {
			return err
		}

		draft := models.Mail{
			ID:         draftID,
			SenderID:   in.OwnerID,
			SenderName: "Me",
			OwnerID:    in.OwnerID,
			Read:       true,
			Draft:      true,
			Timestamp:  time.Now().UTC(),
		}
		if existing != nil {
			draft = *existing
			draft.Draft = true
		}
		if in.To != nil {
			draft.RecipientID = *in.To
			draft.RecipientName = *in.To
			draft.RecipientEmail = *in.To
		}
		if in.Subject != nil {
			draft.Subject = *in.Subject
		}
		if in.Content != nil {
			draft.Content = *in.Content
		}
		if in.Timestamp != nil {
			draft.Timestamp = *in.Timestamp
		}

		if err := s.Mails.Upsert(ctx, &draft); err != nil {
			return err
		}
		id, err := ensureLabel(ctx, s, in.OwnerID, models.LabelDrafts)
		if err != nil {
			return err
		}
		_, err = s.Links.Add(ctx, draftID, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return draftID, nil
}

// ConvertDraftToSent finishes a draft's lifecycle. When newID differs from
// draftID the draft row is deleted and rewritten under newID; otherwise the
// same row is rewritten in place. The mail ends up linked to exactly "sent"
// (markAsSent) or "outbox" (queued for sending), never "drafts". The
// transition is one-way.
func (m *Mutator) ConvertDraftToSent(ctx context.Context, draftID, ownerID, newID, to, subject, content string, ts time.Time, markAsSent bool) (string, error) {
	finalID := draftID
	if newID != "" {
		finalID = newID
	}

	err := m.transact(ctx, func(s *repository.Store) error {
		sent := models.Mail{
			ID:             finalID,
			SenderID:       ownerID,
			SenderName:     "Me",
			RecipientID:    to,
			RecipientName:  to,
			RecipientEmail: to,
			Subject:        subject,
			Content:        content,
			Timestamp:      ts,
			OwnerID:        ownerID,
			Read:           true,
			Draft:          false,
		}

		if finalID != draftID {
			if _, err := s.Links.ClearForMail(ctx, draftID); err != nil {
				return err
			}
			if _, err := s.Mails.Delete(ctx, draftID); err != nil {
				return err
			}
		} else {
			if _, err := s.Links.Remove(ctx, draftID, models.LabelDrafts); err != nil {
				return err
			}
		}

		if err := s.Mails.Upsert(ctx, &sent); err != nil {
			return err
		}

		target := models.LabelOutbox
		if markAsSent {
			target = models.LabelSent
		}
		id, err := ensureLabel(ctx, s, ownerID, target)
		if err != nil {
			return err
		}
		_, err = s.Links.Add(ctx, finalID, id)
		return err
	})
	if err != nil {
		return "", err
	}
	return finalID, nil
}

// SaveMail caches a single mail row
func (m *Mutator) SaveMail(ctx context.Context, mail *models.Mail) error {
	return repository.NewStore(m.db).Mails.Upsert(ctx, mail)
}

// SaveMailsAndLabels bulk-caches remotely fetched mails with their
// authoritative label sets. Existing links are replaced per mail; label ids
// are normalized and missing label rows created. Returns the number of links
// added. Only remote refresh should use this: it erases local-only links.
func (m *Mutator) SaveMailsAndLabels(ctx context.Context, mails []models.Mail, mailIDToLabels map[string][]string) (int, error) {
	linkCount := 0
	err := m.transact(ctx, func(s *repository.Store) error {
		if err := s.Mails.UpsertAll(ctx, mails); err != nil {
			return err
		}
		for i := range mails {
			mail := &mails[i]
			if _, err := s.Links.ClearForMail(ctx, mail.ID); err != nil {
				return err
			}
			for _, raw := range mailIDToLabels[mail.ID] {
				labelID := models.NormalizeLabelID(raw)
				if labelID == "" {
					continue
				}
				if err := s.Labels.Upsert(ctx, &models.Label{ID: labelID, OwnerID: mail.OwnerID, Name: labelID}); err != nil {
					return err
				}
				added, err := s.Links.Add(ctx, mail.ID, labelID)
				if err != nil {
					return err
				}
				if added {
					linkCount++
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return linkCount, nil
}

// SetRead updates the read flag of a mail
func (m *Mutator) SetRead(ctx context.Context, mailID string, read bool) error {
	return repository.NewStore(m.db).Mails.SetRead(ctx, mailID, read)
}

// SetStarred updates the starred flag of a mail
func (m *Mutator) SetStarred(ctx context.Context, mailID string, starred bool) error {
	return repository.NewStore(m.db).Mails.SetStarred(ctx, mailID, starred)
}

// DeleteMail removes a mail and all its links. Deleting an absent mail is a
// no-op.
func (m *Mutator) DeleteMail(ctx context.Context, mailID string) error {
	return m.transact(ctx, func(s *repository.Store) error {
		if _, err := s.Links.ClearForMail(ctx, mailID); err != nil {
			return err
		}
		_, err := s.Mails.Delete(ctx, mailID)
		return err
	})
}

// QueueLabelAdd links a label locally and records a LABEL_ADD for replay
func (m *Mutator) QueueLabelAdd(ctx context.Context, mailID, label, ownerID string) error {
	return m.transact(ctx, func(s *repository.Store) error {
		id, err := ensureLabel(ctx, s, ownerID, label)
		if err != nil {
			return err
		}
		if _, err := s.Links.Add(ctx, mailID, id); err != nil {
			return err
		}
		op, err := models.NewOperation(models.OpLabelAdd, models.LabelAddPayload{MailID: mailID, Label: label}, mailID)
		if err != nil {
			return err
		}
		if err := s.Pending.Enqueue(ctx, op); err != nil {
			return err
		}
		m.log.OpEnqueued(op.ID, string(op.Kind))
		return nil
	})
}

// QueueLabelRemove unlinks a label locally and records a LABEL_REMOVE
func (m *Mutator) QueueLabelRemove(ctx context.Context, mailID, label string) error {
	return m.transact(ctx, func(s *repository.Store) error {
		if _, err := s.Links.Remove(ctx, mailID, models.NormalizeLabelID(label)); err != nil {
			return err
		}
		op, err := models.NewOperation(models.OpLabelRemove, models.LabelRemovePayload{MailID: mailID, Label: label}, mailID)
		if err != nil {
			return err
		}
		if err := s.Pending.Enqueue(ctx, op); err != nil {
			return err
		}
		m.log.OpEnqueued(op.ID, string(op.Kind))
		return nil
	})
}

// QueueMove moves a mail locally and records a LABEL_MOVE carrying the
// removed category labels for replay.
func (m *Mutator) QueueMove(ctx context.Context, mailID, ownerID, targetRaw string) ([]string, error) {
	var removed []string
	err := m.transact(ctx, func(s *repository.Store) error {
		var err error
		removed, err = moveMail(ctx, s, mailID, ownerID, targetRaw)
		if err != nil {
			return err
		}
		payload := models.LabelMovePayload{
			MailID:        mailID,
			TargetLabel:   models.NormalizeLabelID(targetRaw),
			RemovedLabels: removed,
		}
		op, err := models.NewOperation(models.OpLabelMove, payload, mailID)
		if err != nil {
			return err
		}
		if err := s.Pending.Enqueue(ctx, op); err != nil {
			return err
		}
		m.log.OpEnqueued(op.ID, string(op.Kind))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// QueueLabelCreate creates a label locally under its provisional id and
// records a LABEL_CREATE so the reconciler can remap it to the server id.
func (m *Mutator) QueueLabelCreate(ctx context.Context, ownerID, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("label create: %w", repository.ErrInvalidInput)
	}
	var localID string
	err := m.transact(ctx, func(s *repository.Store) error {
		var err error
		localID, err = ensureLabel(ctx, s, ownerID, name)
		if err != nil {
			return err
		}
		payload := models.LabelCreatePayload{Name: name, OwnerID: ownerID, LocalID: localID}
		op, err := models.NewOperation(models.OpLabelCreate, payload, localID)
		if err != nil {
			return err
		}
		if err := s.Pending.Enqueue(ctx, op); err != nil {
			return err
		}
		m.log.OpEnqueued(op.ID, string(op.Kind))
		return nil
	})
	if err != nil {
		return "", err
	}
	return localID, nil
}

// QueueMailSend stores an outgoing mail under a provisional local id, links
// it to "outbox" and records a MAIL_SEND. When the send originated from a
// draft the draft row is removed in the same transaction.
func (m *Mutator) QueueMailSend(ctx context.Context, ownerID, to, subject, content string, ts time.Time, draftID string) (string, error) {
	localID := "local-" + uuid.NewString()
	err := m.transact(ctx, func(s *repository.Store) error {
		outbox := models.Mail{
			ID:             localID,
			SenderID:       ownerID,
			SenderName:     "Me",
			RecipientID:    to,
			RecipientName:  to,
			RecipientEmail: to,
			Subject:        subject,
			Content:        content,
			Timestamp:      ts,
			OwnerID:        ownerID,
			Read:           true,
		}
		if err := s.Mails.Upsert(ctx, &outbox); err != nil {
			return err
		}
		id, err := ensureLabel(ctx, s, ownerID, models.LabelOutbox)
		if err != nil {
			return err
		}
		if _, err := s.Links.Add(ctx, localID, id); err != nil {
			return err
		}

		payload := models.MailSendPayload{
			LocalID: localID,
			OwnerID: ownerID,
			To:      to,
			Subject: subject,
			Content: content,
		}
		op, err := models.NewOperation(models.OpMailSend, payload, localID)
		if err != nil {
			return err
		}
		if err := s.Pending.Enqueue(ctx, op); err != nil {
			return err
		}

		if draftID != "" {
			if _, err := s.Links.ClearForMail(ctx, draftID); err != nil {
				return err
			}
			if _, err := s.Mails.Delete(ctx, draftID); err != nil {
				return err
			}
		}
		m.log.OpEnqueued(op.ID, string(op.Kind))
		return nil
	})
	if err != nil {
		return "", err
	}
	return localID, nil
}

// GetMail retrieves a single cached mail
func (m *Mutator) GetMail(ctx context.Context, mailID string) (*models.Mail, error) {
	return repository.NewStore(m.db).Mails.GetByID(ctx, mailID)
}

// LabelsForMail returns the label ids linked to a mail
func (m *Mutator) LabelsForMail(ctx context.Context, mailID string) ([]string, error) {
	return repository.NewStore(m.db).Links.LabelsForMail(ctx, mailID)
}

// MailsForLabel returns the cached mails carrying a label
func (m *Mutator) MailsForLabel(ctx context.Context, labelID, ownerID string) ([]models.Mail, error) {
	return repository.NewStore(m.db).Links.MailsForLabel(ctx, models.NormalizeLabelID(labelID), ownerID)
}
