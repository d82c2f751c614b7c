package sync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/gmailish/syncd/internal/logger"
	"github.com/gmailish/syncd/internal/models"
	"github.com/gmailish/syncd/internal/remote"
	"github.com/gmailish/syncd/internal/repository"
	"github.com/gmailish/syncd/tests/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ReconcilerTestSuite is the test suite for the Reconciler
type ReconcilerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	store  *repository.Store
	remote *mocks.MockRemoteClient
	ctx    context.Context
}

// SetupSuite runs once before all tests
func (s *ReconcilerTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.T(), err)

	err = db.AutoMigrate(&models.Mail{}, &models.Label{}, &models.MailLabel{}, &models.PendingOperation{})
	require.NoError(s.T(), err)

	s.db = db
	s.store = repository.NewStore(db)
	s.ctx = context.Background()
}

// TearDownSuite runs once after all tests
func (s *ReconcilerTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test - clean up data and reset the mock
func (s *ReconcilerTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM mail_labels")
	s.db.Exec("DELETE FROM pending_operations")
	s.db.Exec("DELETE FROM mails")
	s.db.Exec("DELETE FROM labels")
	s.remote = new(mocks.MockRemoteClient)
}

// TestReconcilerTestSuite runs the test suite
func TestReconcilerTestSuite(t *testing.T) {
	suite.Run(t, new(ReconcilerTestSuite))
}

func (s *ReconcilerTestSuite) reconciler(tokens remote.TokenProvider) *Reconciler {
	if tokens == nil {
		tokens = func() (string, error) { return "tok", nil }
	}
	return NewReconciler(s.db, s.remote, tokens, logger.NewSyncLogger(slog.LevelError))
}

func (s *ReconcilerTestSuite) enqueue(kind models.OperationKind, payload any, relatedLocalID string) *models.PendingOperation {
	op, err := models.NewOperation(kind, payload, relatedLocalID)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.store.Pending.Enqueue(s.ctx, op))
	return op
}

func (s *ReconcilerTestSuite) enqueueRaw(kind models.OperationKind, rawPayload string) *models.PendingOperation {
	op := &models.PendingOperation{
		ID:        "op-" + string(kind),
		Kind:      kind,
		Payload:   rawPayload,
		CreatedAt: time.Now().UTC(),
		Status:    models.StatusPending,
	}
	require.NoError(s.T(), s.store.Pending.Enqueue(s.ctx, op))
	return op
}

func (s *ReconcilerTestSuite) operationByID(id string) (*models.PendingOperation, bool) {
	var op models.PendingOperation
	err := s.db.Where("id = ?", id).First(&op).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false
	}
	require.NoError(s.T(), err)
	return &op, true
}

// ==================== RunPass Tests ====================

func (s *ReconcilerTestSuite) TestRunPass_SkipsWithoutToken() {
	s.enqueue(models.OpLabelAdd, models.LabelAddPayload{MailID: "m1", Label: "work"}, "m1")

	stats, err := s.reconciler(func() (string, error) { return "", nil }).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{}, stats)
	s.remote.AssertNotCalled(s.T(), "PatchMailLabel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestRunPass_SkipsOnTokenError() {
	s.enqueue(models.OpLabelAdd, models.LabelAddPayload{MailID: "m1", Label: "work"}, "m1")

	stats, err := s.reconciler(func() (string, error) { return "", errors.New("session expired") }).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{}, stats)
}

func (s *ReconcilerTestSuite) TestRunPass_MarksSuccessfulRowDone() {
	op := s.enqueue(models.OpLabelAdd, models.LabelAddPayload{MailID: "m1", Label: "work"}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "work", remote.LabelActionAdd).
		Return(remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)

	stored, ok := s.operationByID(op.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.StatusDone, stored.Status)
	s.remote.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestRunPass_RetryableFailureKeepsRowPending() {
	op := s.enqueue(models.OpLabelAdd, models.LabelAddPayload{MailID: "m1", Label: "work"}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "work", remote.LabelActionAdd).
		Return(remote.OutcomeRetry, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Retried: 1}, stats)

	stored, ok := s.operationByID(op.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.StatusPending, stored.Status)
	assert.Equal(s.T(), 1, stored.RetryCount)
}

func (s *ReconcilerTestSuite) TestRunPass_PermanentFailureDeletesRow() {
	op := s.enqueue(models.OpLabelRemove, models.LabelRemovePayload{MailID: "m1", Label: "work"}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "work", remote.LabelActionRemove).
		Return(remote.OutcomePermanent, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Dropped: 1}, stats)

	_, ok := s.operationByID(op.ID)
	assert.False(s.T(), ok)
}

func (s *ReconcilerTestSuite) TestRunPass_MalformedPayloadDroppedWithoutRemoteCall() {
	op := s.enqueueRaw(models.OpLabelAdd, `{"mailId":""}`)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Dropped: 1}, stats)

	_, ok := s.operationByID(op.ID)
	assert.False(s.T(), ok)
	s.remote.AssertNotCalled(s.T(), "PatchMailLabel", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (s *ReconcilerTestSuite) TestRunPass_UnknownKindDropped() {
	op := s.enqueueRaw(models.OperationKind("LEGACY_OP"), `{}`)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Dropped: 1}, stats)

	_, ok := s.operationByID(op.ID)
	assert.False(s.T(), ok)
}

func (s *ReconcilerTestSuite) TestRunPass_FailingRowDoesNotBlockLaterRows() {
	s.enqueueRaw(models.OpLabelAdd, `not json`)
	okOp := s.enqueue(models.OpLabelAdd, models.LabelAddPayload{MailID: "m2", Label: "work"}, "m2")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m2", "work", remote.LabelActionAdd).
		Return(remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 2, Done: 1, Dropped: 1}, stats)

	stored, ok := s.operationByID(okOp.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.StatusDone, stored.Status)
}

// ==================== LABEL_MOVE Tests ====================

func (s *ReconcilerTestSuite) TestRunPass_MoveReplaysRemovesThenAdd() {
	s.enqueue(models.OpLabelMove, models.LabelMovePayload{
		MailID:        "m1",
		TargetLabel:   "archive",
		RemovedLabels: []string{"primary", "important"},
	}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "primary", remote.LabelActionRemove).
		Return(remote.OutcomeSuccess, nil)
	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "important", remote.LabelActionRemove).
		Return(remote.OutcomeSuccess, nil)
	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "archive", remote.LabelActionAdd).
		Return(remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)
	s.remote.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestRunPass_MovePartialFailureRetriesWholeRow() {
	op := s.enqueue(models.OpLabelMove, models.LabelMovePayload{
		MailID:        "m1",
		TargetLabel:   "trash",
		RemovedLabels: []string{"primary"},
	}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "primary", remote.LabelActionRemove).
		Return(remote.OutcomeRetry, nil)
	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "trash", remote.LabelActionAdd).
		Return(remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Retried: 1}, stats)

	stored, ok := s.operationByID(op.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), models.StatusPending, stored.Status)
	assert.Equal(s.T(), 1, stored.RetryCount)
	s.remote.AssertExpectations(s.T())
}

func (s *ReconcilerTestSuite) TestRunPass_MoveNeverRemovesStarred() {
	s.enqueue(models.OpLabelMove, models.LabelMovePayload{
		MailID:        "m1",
		TargetLabel:   "spam",
		RemovedLabels: []string{"starred", "", "primary"},
	}, "m1")

	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "primary", remote.LabelActionRemove).
		Return(remote.OutcomeSuccess, nil)
	s.remote.On("PatchMailLabel", mock.Anything, "tok", "m1", "spam", remote.LabelActionAdd).
		Return(remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)
	s.remote.AssertNotCalled(s.T(), "PatchMailLabel", mock.Anything, mock.Anything, mock.Anything, "starred", mock.Anything)
}

// ==================== LABEL_CREATE Tests ====================

func (s *ReconcilerTestSuite) TestRunPass_LabelCreateRemapsToServerID() {
	require.NoError(s.T(), s.store.Labels.Upsert(s.ctx, &models.Label{ID: "work", OwnerID: "u1", Name: "Work"}))
	require.NoError(s.T(), s.store.Mails.Upsert(s.ctx, &models.Mail{ID: "m1", OwnerID: "u1", Timestamp: time.Now().UTC()}))
	_, err := s.store.Links.Add(s.ctx, "m1", "work")
	require.NoError(s.T(), err)

	s.enqueue(models.OpLabelCreate, models.LabelCreatePayload{Name: "Work", OwnerID: "u1", LocalID: "work"}, "work")

	s.remote.On("CreateLabel", mock.Anything, "tok", "Work").
		Return(&remote.CreatedLabel{ID: "lbl-99", Name: "Work", OwnerID: "u1"}, remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)

	_, err = s.store.Labels.GetByID(s.ctx, "work")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	server, err := s.store.Labels.GetByID(s.ctx, "lbl-99")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Work", server.Name)

	labels, err := s.store.Links.LabelsForMail(s.ctx, "m1")
	require.NoError(s.T(), err)
	assert.NotContains(s.T(), labels, "work")
}

func (s *ReconcilerTestSuite) TestRunPass_LabelCreateSameIDKeepsRow() {
	require.NoError(s.T(), s.store.Labels.Upsert(s.ctx, &models.Label{ID: "work", OwnerID: "u1", Name: "Work"}))
	s.enqueue(models.OpLabelCreate, models.LabelCreatePayload{Name: "Work", OwnerID: "u1", LocalID: "work"}, "work")

	s.remote.On("CreateLabel", mock.Anything, "tok", "Work").
		Return(&remote.CreatedLabel{ID: "work"}, remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)

	label, err := s.store.Labels.GetByID(s.ctx, "work")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Work", label.Name)
}

func (s *ReconcilerTestSuite) TestRunPass_LabelCreateRetryLeavesLocalRow() {
	require.NoError(s.T(), s.store.Labels.Upsert(s.ctx, &models.Label{ID: "work", OwnerID: "u1", Name: "Work"}))
	op := s.enqueue(models.OpLabelCreate, models.LabelCreatePayload{Name: "Work", OwnerID: "u1", LocalID: "work"}, "work")

	s.remote.On("CreateLabel", mock.Anything, "tok", "Work").
		Return(nil, remote.OutcomeRetry, errors.New("connection refused"))

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Retried: 1}, stats)

	stored, ok := s.operationByID(op.ID)
	require.True(s.T(), ok)
	assert.Equal(s.T(), 1, stored.RetryCount)

	_, err = s.store.Labels.GetByID(s.ctx, "work")
	assert.NoError(s.T(), err)
}

// ==================== MAIL_SEND Tests ====================

func (s *ReconcilerTestSuite) TestRunPass_MailSendRemapsOutboxRow() {
	localID := "local-abc"
	require.NoError(s.T(), s.store.Mails.Upsert(s.ctx, &models.Mail{
		ID: localID, OwnerID: "u1", RecipientEmail: "b@x.com", Subject: "Hi", Timestamp: time.Now().UTC(),
	}))
	require.NoError(s.T(), s.store.Labels.Upsert(s.ctx, &models.Label{ID: models.LabelOutbox, OwnerID: "u1", Name: models.LabelOutbox}))
	_, err := s.store.Links.Add(s.ctx, localID, models.LabelOutbox)
	require.NoError(s.T(), err)

	s.enqueue(models.OpMailSend, models.MailSendPayload{
		LocalID: localID, OwnerID: "u1", To: "b@x.com", Subject: "Hi", Content: "Body",
	}, localID)

	s.remote.On("CreateMail", mock.Anything, "tok", "b@x.com", "Hi", "Body").
		Return(&remote.CreatedMail{ID: "srv-1"}, remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)

	_, err = s.store.Mails.GetByID(s.ctx, localID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	confirmed, err := s.store.Mails.GetByID(s.ctx, "srv-1")
	require.NoError(s.T(), err)
	assert.True(s.T(), confirmed.Read)
	assert.False(s.T(), confirmed.Draft)

	labels, err := s.store.Links.LabelsForMail(s.ctx, "srv-1")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []string{models.LabelSent}, labels)
}

func (s *ReconcilerTestSuite) TestRunPass_MailSendWithoutLocalRowStillConfirms() {
	s.enqueue(models.OpMailSend, models.MailSendPayload{
		LocalID: "local-gone", OwnerID: "u1", To: "b@x.com", Subject: "Hi", Content: "Body",
	}, "local-gone")

	s.remote.On("CreateMail", mock.Anything, "tok", "b@x.com", "Hi", "Body").
		Return(&remote.CreatedMail{AltID: "srv-2"}, remote.OutcomeSuccess, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Done: 1}, stats)

	confirmed, err := s.store.Mails.GetByID(s.ctx, "srv-2")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Hi", confirmed.Subject)
	assert.Equal(s.T(), "u1", confirmed.OwnerID)
}

func (s *ReconcilerTestSuite) TestRunPass_MailSendPermanentFailureDropsRow() {
	op := s.enqueue(models.OpMailSend, models.MailSendPayload{
		LocalID: "local-abc", OwnerID: "u1", To: "b@x.com", Subject: "Hi", Content: "Body",
	}, "local-abc")

	s.remote.On("CreateMail", mock.Anything, "tok", "b@x.com", "Hi", "Body").
		Return(nil, remote.OutcomePermanent, nil)

	stats, err := s.reconciler(nil).RunPass(s.ctx)

	require.NoError(s.T(), err)
	assert.Equal(s.T(), Stats{Processed: 1, Dropped: 1}, stats)

	_, ok := s.operationByID(op.ID)
	assert.False(s.T(), ok)
}
