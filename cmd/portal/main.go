package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/tejaskp/portal-api/api/swagger"
	"github.com/tejaskp/portal-api/internal/handler"
	"github.com/tejaskp/portal-api/internal/middleware"
	"github.com/tejaskp/portal-api/internal/models"
	"github.com/tejaskp/portal-api/internal/repository"
	"github.com/tejaskp/portal-api/internal/service"
	"github.com/tejaskp/portal-api/pkg/cache"
	"github.com/tejaskp/portal-api/pkg/config"
	"github.com/tejaskp/portal-api/pkg/database"
	"github.com/tejaskp/portal-api/pkg/export"
	"github.com/tejaskp/portal-api/pkg/jobs"
	"github.com/tejaskp/portal-api/pkg/logger"
	"github.com/tejaskp/portal-api/pkg/mail"
	corsmiddleware "github.com/tejaskp/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tejaskp/portal-api/pkg/middleware/requestid"
	"github.com/tejaskp/portal-api/pkg/storage"
)

// @title Portal API
// @version 1.0.0
// @description Institution management portal backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close() //nolint:errcheck

	validate := validator.New()

	metricsSvc := service.NewMetricsService()

	cacheEnabled := true
	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheEnabled = false
	} else {
		repo := repository.NewCacheRepository(redisClient, logr)
		defer repo.Close() //nolint:errcheck
		cacheRepo = repo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, 5*time.Minute, logr, cacheEnabled)

	baseRelay, fetcher := buildMailBackend(cfg, logr)
	relay := &instrumentedRelay{relay: baseRelay, metrics: metricsSvc}

	store, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		return fmt.Errorf("init document storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)
	renderer := export.NewDocumentRenderer(cfg.Mail.FromName, "")

	userRepo := repository.NewUserRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	leaveRepo := repository.NewLeaveRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	referralRepo := repository.NewReferralRepository(db)
	mailboxRepo := repository.NewMailboxRepository(db)
	chatRepo := repository.NewChatRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	gameRepo := repository.NewGameRepository(db)
	holidayRepo := repository.NewHolidayRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret:     cfg.JWT.Secret,
		TokenExpiry:     cfg.JWT.Expiration,
		FaceThreshold:   cfg.FaceAuth.Threshold,
		FaceMaxFailures: cfg.FaceAuth.MaxFailures,
		LockoutDuration: cfg.FaceAuth.LockoutDuration,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, holidayRepo, logr, service.AttendanceConfig{
		LateDeadline:   cfg.Attendance.LateDeadline,
		LateStrikes:    cfg.Attendance.LateStrikes,
		MinimumHours:   cfg.Attendance.MinimumHours,
		StrikeRemark:   cfg.Attendance.StrikeRemark,
		EarlyOutRemark: cfg.Attendance.EarlyOutRemark,
	})
	leaveSvc := service.NewLeaveService(leaveRepo, userRepo, validate, logr, service.LeaveConfig{
		CasualRate: cfg.Leave.CasualRate,
		SickRate:   cfg.Leave.SickRate,
	})
	invoiceSvc := service.NewInvoiceService(invoiceRepo, userRepo, renderer, relay, validate, logr, service.InvoiceConfig{
		NumberPrefix:    cfg.Invoice.NumberPrefix,
		ImportedPrefix:  cfg.Invoice.ImportedPrefix,
		DuplicateWindow: cfg.Invoice.DuplicateWindow,
		NumberPadding:   cfg.Invoice.NumberPadding,
	})
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	referralSvc := service.NewReferralService(referralRepo, notificationSvc, validate, logr, service.ReferralConfig{
		EnrollmentPayout: cfg.Referral.EnrollmentPayout,
	})
	mailboxSvc := service.NewMailboxService(mailboxRepo, userRepo, relay, fetcher, validate, logr, service.MailboxConfig{
		Domain:         cfg.Mailbox.Domain,
		SyncBatchLimit: cfg.Mailbox.SyncBatchLimit,
	})
	chatSvc := service.NewChatService(chatRepo, validate, logr)
	gameSvc := service.NewGameService(gameRepo, cacheSvc, validate, logr, service.GameConfig{
		LeaderboardTTL:   cfg.Game.LeaderboardTTL,
		LeaderboardLimit: cfg.Game.LeaderboardLimit,
	})
	documentSvc := service.NewDocumentService(documentRepo, userRepo, renderer, store, signer, relay, validate, logr)
	dashboardSvc := service.NewDashboardService(dashboardRepo, attendanceRepo, cacheSvc, logr, service.DashboardConfig{
		CacheTTL: cfg.Dashboard.CacheTTL,
	})
	portalSvc := service.NewPortalService(holidayRepo, validate, logr)
	projectSvc := service.NewProjectService(projectRepo, userRepo, validate, logr, service.ProjectConfig{})
	submissionSvc := service.NewSubmissionService(submissionRepo, userRepo, store, relay, notificationSvc, logr, service.SubmissionConfig{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncQueue := jobs.NewQueue("mailbox-sync", func(ctx context.Context, job jobs.Job) error {
		delivered, err := mailboxSvc.SyncInbound(ctx)
		if err != nil {
			return err
		}
		if delivered > 0 {
			logr.Sugar().Infow("inbound mail delivered", "count", delivered)
		}
		return nil
	}, jobs.QueueConfig{Workers: cfg.Mailbox.SyncWorkers, Logger: logr})
	syncQueue.Start(ctx)
	defer syncQueue.Stop()
	go scheduleMailboxSync(ctx, syncQueue)

	router := buildRouter(cfg, logr, routerDeps{
		auth:          handler.NewAuthHandler(authSvc, metricsSvc),
		users:         handler.NewUserHandler(userSvc),
		attendance:    handler.NewAttendanceHandler(attendanceSvc),
		leave:         handler.NewLeaveHandler(leaveSvc),
		invoices:      handler.NewInvoiceHandler(invoiceSvc, dashboardSvc, metricsSvc),
		referrals:     handler.NewReferralHandler(referralSvc),
		mailbox:       handler.NewMailboxHandler(mailboxSvc),
		chat:          handler.NewChatHandler(chatSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		game:          handler.NewGameHandler(gameSvc),
		documents:     handler.NewDocumentHandler(documentSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		portal:        handler.NewPortalHandler(portalSvc),
		projects:      handler.NewProjectHandler(projectSvc),
		submissions:   handler.NewSubmissionHandler(submissionSvc),
		metrics:       handler.NewMetricsHandler(metricsSvc),
		authSvc:       authSvc,
		metricsSvc:    metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Sugar().Infow("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type routerDeps struct {
	auth          *handler.AuthHandler
	users         *handler.UserHandler
	attendance    *handler.AttendanceHandler
	leave         *handler.LeaveHandler
	invoices      *handler.InvoiceHandler
	referrals     *handler.ReferralHandler
	mailbox       *handler.MailboxHandler
	chat          *handler.ChatHandler
	notifications *handler.NotificationHandler
	game          *handler.GameHandler
	documents     *handler.DocumentHandler
	dashboard     *handler.DashboardHandler
	portal        *handler.PortalHandler
	projects      *handler.ProjectHandler
	submissions   *handler.SubmissionHandler
	metrics       *handler.MetricsHandler
	authSvc       *service.AuthService
	metricsSvc    *service.MetricsService
}

func buildRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/metrics", deps.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	admin := string(models.RoleAdmin)
	allRoles := []string{
		string(models.RoleAdmin),
		string(models.RoleStudent),
		string(models.RoleEmployee),
		string(models.RoleClient),
	}

	auth := api.Group("/auth")
	{
		auth.POST("/login", deps.auth.Login)
		auth.POST("/face-login", deps.auth.FaceLogin)
		auth.POST("/register", deps.auth.Register)
		auth.POST("/set-password", deps.auth.SetPassword)
		auth.POST("/logout", middleware.JWT(deps.authSvc), deps.auth.Logout)
		auth.GET("/me", middleware.JWT(deps.authSvc), deps.auth.Me)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.authSvc))

	authed.POST("/user/face-auth", deps.auth.FaceAuth)

	users := authed.Group("/users")
	{
		users.GET("", middleware.RBAC(admin), deps.users.List)
		users.POST("", middleware.RBAC(admin), deps.users.Create)
		users.GET("/:id", middleware.RBAC(admin, "SELF"), deps.users.Get)
		users.PUT("/:id", middleware.RBAC(admin, "SELF"), deps.users.Update)
		users.PATCH("/:id/status", middleware.RBAC(admin), deps.users.UpdateStatus)
		users.DELETE("/:id/face", middleware.RBAC(admin), deps.users.ResetFace)
		users.DELETE("/:id", middleware.RBAC(admin), deps.users.Delete)
	}

	attendance := authed.Group("/attendance")
	{
		attendance.POST("/check-in", deps.attendance.CheckIn)
		attendance.POST("/check-out", deps.attendance.CheckOut)
		attendance.GET("/today", deps.attendance.Today)
		attendance.GET("/history", deps.attendance.History)
		attendance.GET("/daily", middleware.RBAC(admin), deps.attendance.Daily)
	}

	leave := authed.Group("/leave")
	{
		leave.POST("", deps.leave.Apply)
		leave.GET("/mine", deps.leave.Mine)
		leave.GET("/balance", deps.leave.Balance)
		leave.GET("", middleware.RBAC(admin), deps.leave.List)
		leave.PATCH("/status", middleware.RBAC(admin), deps.leave.UpdateStatus)
	}

	invoices := authed.Group("/invoices")
	{
		invoices.GET("/mine", deps.invoices.Mine)
		invoices.POST("", middleware.RBAC(admin), deps.invoices.Create)
		invoices.GET("", middleware.RBAC(admin), deps.invoices.List)
		invoices.POST("/email", middleware.RBAC(admin), deps.invoices.Email)
		invoices.GET("/:id", middleware.RBAC(allRoles...), deps.invoices.Get)
		invoices.GET("/:id/pdf", middleware.RBAC(allRoles...), deps.invoices.PDF)
		invoices.POST("/:id/payments", middleware.RBAC(admin), deps.invoices.RecordPayment)
		invoices.DELETE("/:id", middleware.RBAC(admin), deps.invoices.Delete)
	}

	referrals := authed.Group("/referrals")
	{
		referrals.POST("/leads", deps.referrals.SubmitLead)
		referrals.POST("/projects", deps.referrals.SubmitProject)
		referrals.GET("/mine", deps.referrals.Mine)
		referrals.GET("", middleware.RBAC(admin), deps.referrals.List)
		referrals.PATCH("/:id/status", middleware.RBAC(admin), deps.referrals.UpdateStatus)
	}

	mailbox := authed.Group("/mailbox")
	{
		mailbox.GET("", deps.mailbox.Me)
		mailbox.POST("/send", deps.mailbox.Send)
		mailbox.GET("/folders/:folder", deps.mailbox.Folder)
		mailbox.PATCH("/entries", deps.mailbox.UpdateEntry)
		mailbox.DELETE("/entries/:id", deps.mailbox.DeleteEntry)
		mailbox.GET("/unread", deps.mailbox.UnreadCount)
	}

	chat := authed.Group("/chat")
	{
		chat.POST("/messages", deps.chat.Send)
		chat.GET("/conversations", deps.chat.Conversations)
		chat.GET("/conversations/:id/messages", deps.chat.Messages)
		chat.GET("/with/:id", deps.chat.WithUser)
		chat.GET("/contacts", deps.chat.Contacts)
		chat.GET("/monitor", middleware.RBAC(admin), deps.chat.Monitor)
	}

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", deps.notifications.List)
		notifications.POST("/read", deps.notifications.MarkRead)
	}

	game := api.Group("/game")
	game.Use(middleware.OptionalJWT(deps.authSvc))
	{
		game.POST("/sessions/join", deps.game.Join)
		game.GET("/sessions/:id", deps.game.State)
		game.POST("/sessions/:id/heartbeat", deps.game.Heartbeat)
		game.GET("/leaderboard", deps.game.Leaderboard)
	}

	documents := authed.Group("/documents")
	{
		documents.POST("/certificate", middleware.RBAC(admin), deps.documents.GenerateCertificate)
		documents.POST("/joining-letter", middleware.RBAC(admin), deps.documents.GenerateJoiningLetter)
		documents.POST("/salary-slip", middleware.RBAC(admin), deps.documents.GenerateSalarySlip)
		documents.POST("/noc", middleware.RBAC(admin), deps.documents.GenerateNOC)
		documents.GET("/mine", deps.documents.Mine)
		documents.GET("/users/:id", middleware.RBAC(admin), deps.documents.ListByUser)
		documents.GET("/download", deps.documents.Download)
		documents.POST("/email", deps.documents.Email)
		documents.DELETE("/:id", middleware.RBAC(admin), deps.documents.Delete)
	}

	api.GET("/projects/open", deps.projects.OpenProjects)

	projects := authed.Group("/projects")
	projects.Use(middleware.RBAC(admin))
	{
		projects.GET("", deps.projects.ListProjects)
		projects.POST("", deps.projects.CreateProject)
	}

	tasks := authed.Group("/tasks")
	{
		tasks.GET("/mine", deps.projects.MyTasks)
		tasks.PATCH("/:id", deps.projects.UpdateTask)
		tasks.GET("", middleware.RBAC(admin), deps.projects.Tasks)
		tasks.POST("", middleware.RBAC(admin), deps.projects.CreateTask)
		tasks.DELETE("/:id", middleware.RBAC(admin), deps.projects.DeleteTask)
	}

	submissions := authed.Group("/submissions")
	{
		submissions.POST("", deps.submissions.Submit)
		submissions.GET("/mine", deps.submissions.Mine)
		submissions.GET("/report", middleware.RBAC(admin), deps.submissions.Report)
		submissions.PATCH("/:id/status", middleware.RBAC(admin), deps.submissions.UpdateStatus)
		submissions.DELETE("/:id", middleware.RBAC(admin), deps.submissions.Delete)
		submissions.POST("/remind", middleware.RBAC(admin), deps.submissions.Remind)
	}

	purchases := authed.Group("/purchases")
	purchases.Use(middleware.RBAC(admin))
	{
		purchases.GET("", deps.dashboard.Purchases)
		purchases.POST("", deps.dashboard.CreatePurchase)
	}

	dashboard := authed.Group("/dashboard")
	dashboard.Use(middleware.RBAC(admin))
	{
		dashboard.GET("/stats", deps.dashboard.Stats)
		dashboard.GET("/pending-dues", deps.dashboard.PendingDues)
		dashboard.GET("/pending-dues/export", deps.dashboard.ExportPendingDues)
		dashboard.GET("/metrics", deps.metrics.Snapshot)
	}

	api.GET("/holidays", middleware.OptionalJWT(deps.authSvc), deps.portal.Holidays)
	authed.POST("/holidays", middleware.RBAC(admin), deps.portal.AddHoliday)
	authed.DELETE("/holidays/:id", middleware.RBAC(admin), deps.portal.RemoveHoliday)

	authed.GET("/announcements", deps.portal.Announcements)
	authed.POST("/announcements", middleware.RBAC(admin), deps.portal.Announce)
	authed.DELETE("/announcements/:id", middleware.RBAC(admin), deps.portal.RemoveAnnouncement)

	settings := authed.Group("/settings")
	settings.Use(middleware.RBAC(admin))
	{
		settings.GET("", deps.portal.Settings)
		settings.GET("/:key", deps.portal.GetSetting)
		settings.PUT("", deps.portal.PutSetting)
	}

	return r
}

// instrumentedRelay feeds relay outcomes into the metrics service.
type instrumentedRelay struct {
	relay   mail.Relay
	metrics *service.MetricsService
}

func (r *instrumentedRelay) Send(ctx context.Context, msg mail.Message) error {
	err := r.relay.Send(ctx, msg)
	r.metrics.RecordRelay(err == nil)
	return err
}

func buildMailBackend(cfg *config.Config, logr *zap.Logger) (mail.Relay, mail.Fetcher) {
	switch cfg.Mail.Backend {
	case "sendgrid":
		return mail.NewSendgridRelay(cfg.Mail), mail.NopFetcher{}
	default:
		return mail.NewConsoleRelay(logr), mail.NopFetcher{}
	}
}

func scheduleMailboxSync(ctx context.Context, queue *jobs.Queue) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = queue.Enqueue(jobs.Job{Type: "sync"})
		}
	}
}
