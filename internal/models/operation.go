package models

import (
	"time"

	"github.com/google/uuid"
)

// NewOperation builds a PENDING queue entry with a fresh id and the encoded
// kind-specific payload.
func NewOperation(kind OperationKind, payload any, relatedLocalID string) (*PendingOperation, error) {
	encoded, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return &PendingOperation{
		ID:             uuid.NewString(),
		Kind:           kind,
		Payload:        encoded,
		CreatedAt:      time.Now().UTC(),
		RetryCount:     0,
		Status:         StatusPending,
		RelatedLocalID: relatedLocalID,
	}, nil
}
