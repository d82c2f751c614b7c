package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationKind identifies a queued remote mutation. The set is closed:
// the reconciler dispatches over it exhaustively and drops anything else
// as malformed.
type OperationKind string

const (
	OpLabelAdd    OperationKind = "LABEL_ADD"
	OpLabelRemove OperationKind = "LABEL_REMOVE"
	OpLabelMove   OperationKind = "LABEL_MOVE"
	OpLabelCreate OperationKind = "LABEL_CREATE"
	OpMailSend    OperationKind = "MAIL_SEND"
)

// OperationStatus tracks a pending operation's lifecycle. Transitions are
// monotone: PENDING -> DONE, or the row is deleted on permanent failure.
type OperationStatus string

const (
	StatusPending OperationStatus = "PENDING"
	StatusDone    OperationStatus = "DONE"
	StatusFailed  OperationStatus = "FAILED"
)

// PendingOperation is one entry in the durable offline mutation queue.
// Payload holds the kind-specific JSON; its field names are part of the
// persisted format and must not change between versions.
type PendingOperation struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	Kind           OperationKind   `gorm:"not null;size:32" json:"kind"`
	Payload        string          `gorm:"not null" json:"payload"`
	CreatedAt      time.Time       `gorm:"index" json:"createdAt"`
	RetryCount     int             `gorm:"default:0" json:"retryCount"`
	Status         OperationStatus `gorm:"not null;index;size:16" json:"status"`
	RelatedLocalID string          `gorm:"size:64" json:"relatedLocalId,omitempty"`
}

// TableName returns the table name for PendingOperation
func (PendingOperation) TableName() string {
	return "pending_operations"
}

// LabelAddPayload is the payload for OpLabelAdd.
type LabelAddPayload struct {
	MailID string `json:"mailId"`
	Label  string `json:"label"`
}

// LabelRemovePayload is the payload for OpLabelRemove.
type LabelRemovePayload struct {
	MailID string `json:"mailId"`
	Label  string `json:"label"`
}

// LabelMovePayload is the payload for OpLabelMove. RemovedLabels lists the
// category labels the local move stripped; replay removes each of them
// remotely (skipping "starred" and blanks) before adding TargetLabel.
type LabelMovePayload struct {
	MailID        string   `json:"mailId"`
	TargetLabel   string   `json:"targetLabel"`
	RemovedLabels []string `json:"removedLabels"`
}

// LabelCreatePayload is the payload for OpLabelCreate. LocalID is the
// provisional label id to remap once the server assigns the real one.
type LabelCreatePayload struct {
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
	LocalID string `json:"localId"`
}

// MailSendPayload is the payload for OpMailSend. LocalID is the provisional
// mail id (outbox row) replaced by the server id on confirmation.
type MailSendPayload struct {
	LocalID string `json:"localId"`
	OwnerID string `json:"ownerId"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

// EncodePayload serializes a kind-specific payload struct.
func EncodePayload(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	return string(b), nil
}

// DecodePayload deserializes a stored payload into the given struct.
func DecodePayload(payload string, v any) error {
	if err := json.Unmarshal([]byte(payload), v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
