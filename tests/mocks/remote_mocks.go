package mocks

import (
	"context"

	"github.com/gmailish/syncd/internal/remote"
	"github.com/stretchr/testify/mock"
)

// MockRemoteClient implements remote.Client
type MockRemoteClient struct {
	mock.Mock
}

// CreateLabel creates a label on the server
func (m *MockRemoteClient) CreateLabel(ctx context.Context, token, name string) (*remote.CreatedLabel, remote.Outcome, error) {
	args := m.Called(ctx, token, name)
	if args.Get(0) == nil {
		return nil, args.Get(1).(remote.Outcome), args.Error(2)
	}
	return args.Get(0).(*remote.CreatedLabel), args.Get(1).(remote.Outcome), args.Error(2)
}

// PatchMailLabel adds or removes one label on a mail
func (m *MockRemoteClient) PatchMailLabel(ctx context.Context, token, mailID, label string, action remote.LabelAction) (remote.Outcome, error) {
	args := m.Called(ctx, token, mailID, label, action)
	return args.Get(0).(remote.Outcome), args.Error(1)
}

// CreateMail creates a mail on the server
func (m *MockRemoteClient) CreateMail(ctx context.Context, token, to, subject, content string) (*remote.CreatedMail, remote.Outcome, error) {
	args := m.Called(ctx, token, to, subject, content)
	if args.Get(0) == nil {
		return nil, args.Get(1).(remote.Outcome), args.Error(2)
	}
	return args.Get(0).(*remote.CreatedMail), args.Get(1).(remote.Outcome), args.Error(2)
}
