// Package sync drains the pending operation queue against the remote mail
// service. One pass processes every currently-PENDING row once and leaves
// each row DONE, PENDING with an incremented retry count, or removed.
package sync

import (
	"context"
	"strings"
	"time"

	"github.com/gmailish/syncd/internal/logger"
	"github.com/gmailish/syncd/internal/models"
	"github.com/gmailish/syncd/internal/remote"
	"github.com/gmailish/syncd/internal/repository"
	"gorm.io/gorm"
)

// Stats tallies the outcomes of one reconciliation pass
type Stats struct {
	Processed int `json:"processed"`
	Done      int `json:"done"`
	Retried   int `json:"retried"`
	Dropped   int `json:"dropped"`
}

// rowResult is the terminal disposition of one queue row within a pass
type rowResult int

const (
	rowDone rowResult = iota
	rowRetry
	rowDrop
)

// Reconciler replays queued operations as remote calls and applies
// server-confirmed state back into the local cache. It enforces no
// scheduling of its own: callers invoke RunPass when connectivity allows.
type Reconciler struct {
	db     *gorm.DB
	remote remote.Client
	tokens remote.TokenProvider
	log    *logger.SyncLogger
}

// NewReconciler creates a Reconciler with explicit dependencies
func NewReconciler(db *gorm.DB, client remote.Client, tokens remote.TokenProvider, log *logger.SyncLogger) *Reconciler {
	return &Reconciler{db: db, remote: client, tokens: tokens, log: log}
}

// RunPass drains the queue once. A missing credential skips the pass
// entirely; a failing row never prevents later rows from being processed.
func (r *Reconciler) RunPass(ctx context.Context) (Stats, error) {
	token, err := r.tokens()
	if err != nil || token == "" {
		r.log.PassSkipped("no credential")
		return Stats{}, nil
	}

	store := repository.NewStore(r.db)
	ops, err := store.Pending.ListPending(ctx)
	if err != nil {
		return Stats{}, err
	}

	var stats Stats
	for i := range ops {
		op := &ops[i]
		stats.Processed++

		res, reason := r.processOne(ctx, token, op)
		switch res {
		case rowDone:
			if err := store.Pending.MarkDone(ctx, op.ID); err != nil {
				r.log.StoreError("mark done", err)
				continue
			}
			r.log.OpDone(op.ID, string(op.Kind))
			stats.Done++
		case rowRetry:
			if err := store.Pending.IncrementRetry(ctx, op.ID); err != nil {
				r.log.StoreError("increment retry", err)
				continue
			}
			r.log.OpRetried(op.ID, string(op.Kind), op.RetryCount+1)
			stats.Retried++
		case rowDrop:
			if _, err := store.Pending.Delete(ctx, op.ID); err != nil {
				r.log.StoreError("delete operation", err)
				continue
			}
			r.log.OpDropped(op.ID, string(op.Kind), reason)
			stats.Dropped++
		}
	}

	r.log.PassCompleted(stats.Processed, stats.Done, stats.Retried, stats.Dropped)
	return stats, nil
}

// processOne translates a single queue row into remote calls and, on
// success, the corresponding cache-confirmation writes. The returned reason
// is only meaningful for rowDrop.
func (r *Reconciler) processOne(ctx context.Context, token string, op *models.PendingOperation) (rowResult, string) {
	switch op.Kind {
	case models.OpLabelAdd:
		var p models.LabelAddPayload
		if err := models.DecodePayload(op.Payload, &p); err != nil || p.MailID == "" || p.Label == "" {
			return rowDrop, "malformed payload"
		}
		outcome, _ := r.remote.PatchMailLabel(ctx, token, p.MailID, p.Label, remote.LabelActionAdd)
		return fromOutcome(outcome)

	case models.OpLabelRemove:
		var p models.LabelRemovePayload
		if err := models.DecodePayload(op.Payload, &p); err != nil || p.MailID == "" || p.Label == "" {
			return rowDrop, "malformed payload"
		}
		outcome, _ := r.remote.PatchMailLabel(ctx, token, p.MailID, p.Label, remote.LabelActionRemove)
		return fromOutcome(outcome)

	case models.OpLabelMove:
		var p models.LabelMovePayload
		if err := models.DecodePayload(op.Payload, &p); err != nil || p.MailID == "" || p.TargetLabel == "" {
			return rowDrop, "malformed payload"
		}
		return r.replayMove(ctx, token, &p)

	case models.OpLabelCreate:
		var p models.LabelCreatePayload
		if err := models.DecodePayload(op.Payload, &p); err != nil || p.Name == "" {
			return rowDrop, "malformed payload"
		}
		return r.replayLabelCreate(ctx, token, &p)

	case models.OpMailSend:
		var p models.MailSendPayload
		if err := models.DecodePayload(op.Payload, &p); err != nil || p.LocalID == "" || p.OwnerID == "" || p.To == "" {
			return rowDrop, "malformed payload"
		}
		return r.replayMailSend(ctx, token, &p)
	}

	return rowDrop, "unknown operation kind"
}

// fromOutcome maps a single remote outcome to a row disposition
func fromOutcome(outcome remote.Outcome) (rowResult, string) {
	switch outcome {
	case remote.OutcomeSuccess:
		return rowDone, ""
	case remote.OutcomeRetry:
		return rowRetry, ""
	default:
		return rowDrop, "permanent remote failure"
	}
}

// replayMove issues one remove per recorded label (skipping "starred" and
// blanks) followed by the target add. Every sub-call is attempted even after
// a failure; the row is done only when all of them succeeded. A retryable
// sub-failure outranks a permanent one: the repeat pass re-issues the whole
// sequence, and the removes are idempotent on the server.
func (r *Reconciler) replayMove(ctx context.Context, token string, p *models.LabelMovePayload) (rowResult, string) {
	worst := remote.OutcomeSuccess
	merge := func(o remote.Outcome) {
		if o == remote.OutcomeRetry || (o == remote.OutcomePermanent && worst == remote.OutcomeSuccess) {
			worst = o
		}
	}

	for _, label := range p.RemovedLabels {
		if label == "" || strings.EqualFold(label, models.LabelStarred) {
			continue
		}
		outcome, _ := r.remote.PatchMailLabel(ctx, token, p.MailID, label, remote.LabelActionRemove)
		merge(outcome)
	}
	outcome, _ := r.remote.PatchMailLabel(ctx, token, p.MailID, p.TargetLabel, remote.LabelActionAdd)
	merge(outcome)

	return fromOutcome(worst)
}

// replayLabelCreate posts the label and rewrites the local row under the
// server-assigned id. When the ids differ the provisional row and its links
// are removed; the id remap is delete-old/insert-new, never in place.
func (r *Reconciler) replayLabelCreate(ctx context.Context, token string, p *models.LabelCreatePayload) (rowResult, string) {
	created, outcome, _ := r.remote.CreateLabel(ctx, token, p.Name)
	if outcome != remote.OutcomeSuccess {
		return fromOutcome(outcome)
	}

	serverID := created.ServerID()
	if serverID == "" {
		serverID = p.LocalID
	}
	serverName := created.Name
	if serverName == "" {
		serverName = p.Name
	}
	serverOwner := created.OwnerID
	if serverOwner == "" {
		serverOwner = p.OwnerID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := repository.NewStore(tx)
		if err := s.Labels.Upsert(ctx, &models.Label{ID: serverID, OwnerID: serverOwner, Name: serverName}); err != nil {
			return err
		}
		if p.LocalID != "" && serverID != p.LocalID {
			if _, err := s.Links.ClearForLabel(ctx, p.LocalID); err != nil {
				return err
			}
			if _, err := s.Labels.Delete(ctx, p.LocalID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		r.log.StoreError("confirm label create", err)
		return rowRetry, ""
	}
	return rowDone, ""
}

// replayMailSend posts the mail and swaps the provisional outbox row for a
// row under the server id: links and the old row are deleted, the new row is
// inserted, the "outbox" link is dropped and "sent" is ensured and linked.
func (r *Reconciler) replayMailSend(ctx context.Context, token string, p *models.MailSendPayload) (rowResult, string) {
	created, outcome, _ := r.remote.CreateMail(ctx, token, p.To, p.Subject, p.Content)
	if outcome != remote.OutcomeSuccess {
		return fromOutcome(outcome)
	}

	finalID := created.ServerID()
	if finalID == "" {
		finalID = p.LocalID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		s := repository.NewStore(tx)

		local, err := s.Mails.GetByID(ctx, p.LocalID)
		if err != nil && err != repository.ErrNotFound {
			return err
		}

		confirmed := models.Mail{
			ID:             finalID,
			SenderID:       p.OwnerID,
			SenderName:     "Me",
			RecipientID:    p.To,
			RecipientName:  p.To,
			RecipientEmail: p.To,
			Subject:        p.Subject,
			Content:        p.Content,
			Timestamp:      time.Now().UTC(),
			OwnerID:        p.OwnerID,
			Read:           true,
		}
		if local != nil {
			confirmed = *local
			confirmed.ID = finalID
			confirmed.Read = true
			confirmed.Draft = false
		}

		if local != nil && finalID != p.LocalID {
			if _, err := s.Links.ClearForMail(ctx, p.LocalID); err != nil {
				return err
			}
			if _, err := s.Mails.Delete(ctx, p.LocalID); err != nil {
				return err
			}
		}
		if err := s.Mails.Upsert(ctx, &confirmed); err != nil {
			return err
		}

		if _, err := s.Links.Remove(ctx, finalID, models.LabelOutbox); err != nil {
			return err
		}
		if err := s.Labels.Upsert(ctx, &models.Label{ID: models.LabelSent, OwnerID: p.OwnerID, Name: models.LabelSent}); err != nil {
			return err
		}
		if _, err := s.Links.Add(ctx, finalID, models.LabelSent); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		r.log.StoreError("confirm mail send", err)
		return rowRetry, ""
	}
	return rowDone, ""
}
