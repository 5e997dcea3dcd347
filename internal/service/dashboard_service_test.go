package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type dashboardRepoStub struct {
	purchases []models.Purchase
	created   *models.Purchase
}

func (s *dashboardRepoStub) TotalRevenue(_ context.Context) (float64, error) { return 0, nil }
func (s *dashboardRepoStub) CountUsers(_ context.Context) (int, error)       { return 0, nil }
func (s *dashboardRepoStub) TotalPending(_ context.Context) (float64, error) { return 0, nil }
func (s *dashboardRepoStub) MonthlyRevenue(_ context.Context, _ int) ([12]float64, error) {
	return [12]float64{}, nil
}
func (s *dashboardRepoStub) PendingDues(_ context.Context) ([]models.PendingDue, error) {
	return nil, nil
}

func (s *dashboardRepoStub) CreatePurchase(_ context.Context, purchase *models.Purchase) error {
	purchase.ID = "purchase-new"
	s.created = purchase
	return nil
}

func (s *dashboardRepoStub) ListPurchases(_ context.Context) ([]models.Purchase, error) {
	return s.purchases, nil
}

func TestRecordPurchaseDefaults(t *testing.T) {
	repo := &dashboardRepoStub{}
	svc := NewDashboardService(repo, nil, nil, nil, DashboardConfig{})

	purchase, err := svc.RecordPurchase(context.Background(), models.CreatePurchaseRequest{Amount: 250})
	require.NoError(t, err)
	assert.Equal(t, "Expense", purchase.Description)
	assert.False(t, purchase.Date.IsZero())
}

func TestRecordPurchaseParsesDate(t *testing.T) {
	repo := &dashboardRepoStub{}
	svc := NewDashboardService(repo, nil, nil, nil, DashboardConfig{})

	purchase, err := svc.RecordPurchase(context.Background(), models.CreatePurchaseRequest{
		Amount:      120,
		Description: "Printer ink",
		Date:        "2026-02-14",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.February, 14, 0, 0, 0, 0, time.UTC), purchase.Date)
}

func TestRecordPurchaseRejectsNonPositiveAmount(t *testing.T) {
	svc := NewDashboardService(&dashboardRepoStub{}, nil, nil, nil, DashboardConfig{})

	_, err := svc.RecordPurchase(context.Background(), models.CreatePurchaseRequest{Amount: 0})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordPurchaseRejectsBadDate(t *testing.T) {
	svc := NewDashboardService(&dashboardRepoStub{}, nil, nil, nil, DashboardConfig{})

	_, err := svc.RecordPurchase(context.Background(), models.CreatePurchaseRequest{Amount: 50, Date: "14-02-2026"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
