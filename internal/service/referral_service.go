package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type referralRepository interface {
	Create(ctx context.Context, referral *models.Referral) error
	FindByID(ctx context.Context, id string) (*models.Referral, error)
	ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error)
	ListAll(ctx context.Context) ([]models.ReferralRecord, error)
	Approve(ctx context.Context, referral *models.Referral, amount float64, notification *models.Notification) error
	UpdateStatus(ctx context.Context, id string, status models.ReferralStatus) error
	Stats(ctx context.Context, referrerID string) (*models.ReferralStats, error)
}

type referralNotifier interface {
	Notify(ctx context.Context, userID, title, message string, kind models.NotificationType) error
}

var _ referralNotifier = (*NotificationService)(nil)

// ReferralConfig carries the default payout.
type ReferralConfig struct {
	EnrollmentPayout float64
}

// ReferralService implements the referral program: leads, project
// referrals and the approval payout.
type ReferralService struct {
	repo          referralRepository
	notifications referralNotifier
	validator     *validator.Validate
	logger        *zap.Logger
	config        ReferralConfig
}

// NewReferralService constructs a ReferralService.
func NewReferralService(repo referralRepository, notifications referralNotifier, validate *validator.Validate, logger *zap.Logger, config ReferralConfig) *ReferralService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.EnrollmentPayout <= 0 {
		config.EnrollmentPayout = 50.0
	}
	return &ReferralService{repo: repo, notifications: notifications, validator: validate, logger: logger, config: config}
}

// SubmitLead records an enrollment lead. The lead's name and mobile are
// packed into the description as "name|mobile".
func (s *ReferralService) SubmitLead(ctx context.Context, referrerID string, req models.SubmitLeadRequest) (*models.Referral, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lead payload")
	}

	referral := &models.Referral{
		ReferrerID:  referrerID,
		Type:        models.ReferralEnrollment,
		Status:      models.ReferralPending,
		Description: fmt.Sprintf("%s|%s", req.StudentName, req.StudentMobile),
	}
	if err := s.repo.Create(ctx, referral); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create referral")
	}
	return referral, nil
}

// SubmitProject records a project referral.
func (s *ReferralService) SubmitProject(ctx context.Context, referrerID string, req models.SubmitProjectReferralRequest) (*models.Referral, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid referral payload")
	}

	referral := &models.Referral{
		ReferrerID:  referrerID,
		Type:        models.ReferralProject,
		Status:      models.ReferralPending,
		Description: req.Description,
	}
	if err := s.repo.Create(ctx, referral); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create referral")
	}
	return referral, nil
}

// ListByReferrer returns a user's referrals.
func (s *ReferralService) ListByReferrer(ctx context.Context, referrerID string) ([]models.Referral, error) {
	referrals, err := s.repo.ListByReferrer(ctx, referrerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list referrals")
	}
	return referrals, nil
}

// ListAll returns every referral with referrer info, for admin review.
func (s *ReferralService) ListAll(ctx context.Context) ([]models.ReferralRecord, error) {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list referrals")
	}
	return records, nil
}

// Stats summarises a referrer's history.
func (s *ReferralService) Stats(ctx context.Context, referrerID string) (*models.ReferralStats, error) {
	stats, err := s.repo.Stats(ctx, referrerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referral stats")
	}
	return stats, nil
}

// UpdateStatus transitions a PENDING referral. Approval sets the payout,
// credits the referrer's wallet and notifies them inside one transaction;
// rejection only flips the status and drops a warning notification.
func (s *ReferralService) UpdateStatus(ctx context.Context, id string, req models.UpdateReferralStatusRequest) (*models.Referral, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	referral, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "referral not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load referral")
	}
	if referral.Status != models.ReferralPending {
		return nil, appErrors.Clone(appErrors.ErrConflict, "referral already processed")
	}

	switch req.Status {
	case models.ReferralApproved:
		amount := s.config.EnrollmentPayout
		if req.Amount != nil && *req.Amount > 0 {
			amount = *req.Amount
		}
		notification := &models.Notification{
			UserID:  referral.ReferrerID,
			Title:   "Referral Approved",
			Message: fmt.Sprintf("Your referral was approved. %.2f has been credited to your wallet.", amount),
			Type:    models.NotificationSuccess,
		}
		if err := s.repo.Approve(ctx, referral, amount, notification); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrConflict, "referral already processed")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve referral")
		}
		referral.Status = models.ReferralApproved
		referral.Amount = amount

	case models.ReferralRejected:
		if err := s.repo.UpdateStatus(ctx, referral.ID, models.ReferralRejected); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject referral")
		}
		referral.Status = models.ReferralRejected
		if err := s.notifications.Notify(ctx, referral.ReferrerID, "Referral Rejected",
			"Your referral was reviewed and could not be approved.", models.NotificationWarning); err != nil {
			s.logger.Warn("failed to notify rejected referral", zap.Error(err))
		}

	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown referral status")
	}

	return referral, nil
}
