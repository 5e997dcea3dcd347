package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
	"github.com/tejaskp/portal-api/pkg/export"
)

type dashboardRepository interface {
	TotalRevenue(ctx context.Context) (float64, error)
	CountUsers(ctx context.Context) (int, error)
	TotalPending(ctx context.Context) (float64, error)
	MonthlyRevenue(ctx context.Context, year int) ([12]float64, error)
	PendingDues(ctx context.Context) ([]models.PendingDue, error)
	CreatePurchase(ctx context.Context, purchase *models.Purchase) error
	ListPurchases(ctx context.Context) ([]models.Purchase, error)
}

type dashboardAttendanceRepository interface {
	CountByDate(ctx context.Context, date string) (int, error)
}

// DashboardConfig tunes the admin dashboard.
type DashboardConfig struct {
	CacheTTL time.Duration
}

// DashboardService aggregates the admin home snapshot: revenue, headcount,
// today's attendance and monthly revenue. The snapshot is cached and the
// invoice flow invalidates it on every write.
type DashboardService struct {
	repo       dashboardRepository
	attendance dashboardAttendanceRepository
	cache      *CacheService
	logger     *zap.Logger
	config     DashboardConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(repo dashboardRepository, attendance dashboardAttendanceRepository, cache *CacheService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	return &DashboardService{repo: repo, attendance: attendance, cache: cache, logger: logger, config: config}
}

// Stats returns the dashboard snapshot for the given year. A zero year means
// the current year.
func (s *DashboardService) Stats(ctx context.Context, year int) (*models.DashboardStats, error) {
	now := time.Now()
	if year <= 0 {
		year = now.Year()
	}

	cacheKey := fmt.Sprintf("dashboard:stats:%d", year)
	var cached models.DashboardStats
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return &cached, nil
		}
	}

	revenue, err := s.repo.TotalRevenue(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load revenue")
	}
	users, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count users")
	}
	pending, err := s.repo.TotalPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending dues")
	}
	monthly, err := s.repo.MonthlyRevenue(ctx, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load monthly revenue")
	}

	activeToday := 0
	if s.attendance != nil {
		activeToday, err = s.attendance.CountByDate(ctx, now.Format("2006-01-02"))
		if err != nil {
			s.logger.Warn("failed to count today's attendance", zap.Error(err))
		}
	}

	stats := &models.DashboardStats{
		Revenue:        revenue,
		Users:          users,
		ActiveToday:    activeToday,
		PendingAmount:  pending,
		MonthlyRevenue: monthly,
		Year:           year,
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, stats, s.config.CacheTTL); err != nil {
			s.logger.Warn("failed to cache dashboard stats", zap.Error(err))
		}
	}
	return stats, nil
}

// PendingDues lists users carrying unpaid fees, largest balance first.
func (s *DashboardService) PendingDues(ctx context.Context) (*models.PendingDuesReport, error) {
	dues, err := s.repo.PendingDues(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pending dues")
	}
	report := &models.PendingDuesReport{Users: dues}
	for _, due := range dues {
		report.Total += due.PendingAmount
	}
	return report, nil
}

// PendingDuesExport renders the pending dues report as a downloadable file.
// It returns the bytes, content type and a dated filename.
func (s *DashboardService) PendingDuesExport(ctx context.Context, format string) ([]byte, string, string, error) {
	report, err := s.PendingDues(ctx)
	if err != nil {
		return nil, "", "", err
	}

	data := export.Dataset{
		Headers: []string{"Name", "Mobile", "Course", "Total Fees", "Paid", "Pending"},
	}
	for _, due := range report.Users {
		course := ""
		if due.Course != nil {
			course = *due.Course
		}
		data.Rows = append(data.Rows, map[string]string{
			"Name":       due.Name,
			"Mobile":     due.Mobile,
			"Course":     course,
			"Total Fees": fmt.Sprintf("%.2f", due.TotalFees),
			"Paid":       fmt.Sprintf("%.2f", due.PaidAmount),
			"Pending":    fmt.Sprintf("%.2f", due.PendingAmount),
		})
	}

	stamp := time.Now().Format("2006-01-02")
	switch strings.ToLower(format) {
	case "", "csv":
		raw, err := export.NewCSVExporter().Render(data)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return raw, "text/csv", fmt.Sprintf("pending-dues-%s.csv", stamp), nil
	case "pdf":
		raw, err := export.NewPDFExporter().Render(data, "Pending Dues")
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
		}
		return raw, "application/pdf", fmt.Sprintf("pending-dues-%s.pdf", stamp), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

// RecordPurchase logs an expense in the finance ledger. Description falls
// back to "Expense" and the date to today.
func (s *DashboardService) RecordPurchase(ctx context.Context, req models.CreatePurchaseRequest) (*models.Purchase, error) {
	if req.Amount <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "amount must be positive")
	}
	description := req.Description
	if description == "" {
		description = "Expense"
	}
	date := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "invalid date, expected YYYY-MM-DD")
		}
		date = parsed
	}

	purchase := &models.Purchase{
		Amount:      req.Amount,
		Description: description,
		Category:    req.Category,
		Date:        date,
	}
	if err := s.repo.CreatePurchase(ctx, purchase); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record purchase")
	}
	return purchase, nil
}

// Purchases returns the expense ledger, newest first.
func (s *DashboardService) Purchases(ctx context.Context) ([]models.Purchase, error) {
	purchases, err := s.repo.ListPurchases(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list purchases")
	}
	return purchases, nil
}

// InvalidateStats drops the cached snapshot; called after invoice writes.
func (s *DashboardService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "dashboard:stats:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}
