package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type referralRepoStub struct {
	referrals map[string]*models.Referral

	approvedAmount      float64
	approveNotification *models.Notification
	statusUpdates       []models.ReferralStatus
	created             *models.Referral
}

func newReferralRepoStub(referrals ...*models.Referral) *referralRepoStub {
	stub := &referralRepoStub{referrals: map[string]*models.Referral{}}
	for _, r := range referrals {
		stub.referrals[r.ID] = r
	}
	return stub
}

func (s *referralRepoStub) Create(_ context.Context, referral *models.Referral) error {
	referral.ID = "ref-new"
	s.created = referral
	s.referrals[referral.ID] = referral
	return nil
}

func (s *referralRepoStub) FindByID(_ context.Context, id string) (*models.Referral, error) {
	referral, ok := s.referrals[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *referral
	return &copied, nil
}

func (s *referralRepoStub) ListByReferrer(_ context.Context, _ string) ([]models.Referral, error) {
	return nil, nil
}

func (s *referralRepoStub) ListAll(_ context.Context) ([]models.ReferralRecord, error) {
	return nil, nil
}

func (s *referralRepoStub) Approve(_ context.Context, referral *models.Referral, amount float64, notification *models.Notification) error {
	s.approvedAmount = amount
	s.approveNotification = notification
	s.referrals[referral.ID].Status = models.ReferralApproved
	s.referrals[referral.ID].Amount = amount
	return nil
}

func (s *referralRepoStub) UpdateStatus(_ context.Context, id string, status models.ReferralStatus) error {
	s.statusUpdates = append(s.statusUpdates, status)
	s.referrals[id].Status = status
	return nil
}

func (s *referralRepoStub) Stats(_ context.Context, _ string) (*models.ReferralStats, error) {
	return &models.ReferralStats{}, nil
}

type notifierStub struct {
	notifications []*models.Notification
}

func (n *notifierStub) Notify(_ context.Context, userID, title, message string, kind models.NotificationType) error {
	n.notifications = append(n.notifications, &models.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    kind,
	})
	return nil
}

func pendingReferral(id string) *models.Referral {
	return &models.Referral{
		ID:         id,
		ReferrerID: "referrer-1",
		Type:       models.ReferralEnrollment,
		Status:     models.ReferralPending,
	}
}

func TestSubmitLeadPacksDescription(t *testing.T) {
	repo := newReferralRepoStub()
	svc := NewReferralService(repo, &notifierStub{}, nil, nil, ReferralConfig{})

	referral, err := svc.SubmitLead(context.Background(), "referrer-1", models.SubmitLeadRequest{
		StudentName:   "Asha Verma",
		StudentMobile: "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralEnrollment, referral.Type)
	assert.Equal(t, models.ReferralPending, referral.Status)
	assert.Equal(t, "Asha Verma|9876543210", referral.Description)
}

func TestApproveUsesDefaultPayout(t *testing.T) {
	repo := newReferralRepoStub(pendingReferral("r1"))
	svc := NewReferralService(repo, &notifierStub{}, nil, nil, ReferralConfig{})

	referral, err := svc.UpdateStatus(context.Background(), "r1", models.UpdateReferralStatusRequest{
		Status: models.ReferralApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralApproved, referral.Status)
	assert.Equal(t, 50.0, referral.Amount)
	assert.Equal(t, 50.0, repo.approvedAmount)
	require.NotNil(t, repo.approveNotification)
	assert.Equal(t, "referrer-1", repo.approveNotification.UserID)
	assert.Equal(t, models.NotificationSuccess, repo.approveNotification.Type)
}

func TestApproveHonoursAmountOverride(t *testing.T) {
	repo := newReferralRepoStub(pendingReferral("r1"))
	svc := NewReferralService(repo, &notifierStub{}, nil, nil, ReferralConfig{})

	amount := 125.0
	referral, err := svc.UpdateStatus(context.Background(), "r1", models.UpdateReferralStatusRequest{
		Status: models.ReferralApproved,
		Amount: &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, 125.0, referral.Amount)
}

func TestRejectNotifiesReferrer(t *testing.T) {
	repo := newReferralRepoStub(pendingReferral("r1"))
	notifier := &notifierStub{}
	svc := NewReferralService(repo, notifier, nil, nil, ReferralConfig{})

	referral, err := svc.UpdateStatus(context.Background(), "r1", models.UpdateReferralStatusRequest{
		Status: models.ReferralRejected,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReferralRejected, referral.Status)
	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "referrer-1", notifier.notifications[0].UserID)
	assert.Equal(t, models.NotificationWarning, notifier.notifications[0].Type)
}

func TestUpdateStatusOnlyFromPending(t *testing.T) {
	approved := pendingReferral("r1")
	approved.Status = models.ReferralApproved
	repo := newReferralRepoStub(approved)
	svc := NewReferralService(repo, &notifierStub{}, nil, nil, ReferralConfig{})

	_, err := svc.UpdateStatus(context.Background(), "r1", models.UpdateReferralStatusRequest{
		Status: models.ReferralRejected,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusUnknownReferral(t *testing.T) {
	svc := NewReferralService(newReferralRepoStub(), &notifierStub{}, nil, nil, ReferralConfig{})

	_, err := svc.UpdateStatus(context.Background(), "ghost", models.UpdateReferralStatusRequest{
		Status: models.ReferralApproved,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusRejectsPendingTarget(t *testing.T) {
	repo := newReferralRepoStub(pendingReferral("r1"))
	svc := NewReferralService(repo, &notifierStub{}, nil, nil, ReferralConfig{})

	_, err := svc.UpdateStatus(context.Background(), "r1", models.UpdateReferralStatusRequest{
		Status: models.ReferralPending,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
