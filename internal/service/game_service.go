package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

const leaderboardCacheKey = "game:leaderboard"

type gameRepository interface {
	CreateSession(ctx context.Context, session *models.RacingSession) error
	FindSession(ctx context.Context, id string) (*models.RacingSession, error)
	FindWaitingSession(ctx context.Context) (*models.RacingSession, error)
	UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error
	CreatePlayer(ctx context.Context, player *models.RacingPlayer) error
	FindPlayer(ctx context.Context, id string) (*models.RacingPlayer, error)
	UpdatePlayer(ctx context.Context, player *models.RacingPlayer) error
	ListPlayers(ctx context.Context, sessionID string) ([]models.RacingPlayer, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	ExpireStalePlayers(ctx context.Context, sessionID string, cutoff time.Time) error
}

// GameConfig tunes the racing session API.
type GameConfig struct {
	LeaderboardTTL   time.Duration
	LeaderboardLimit int
	HeartbeatTimeout time.Duration
}

// GameService implements the multiplayer racing lobby: sessions move
// WAITING → ACTIVE → FINISHED, players report state through heartbeats and
// clients poll the session for the full picture.
type GameService struct {
	repo      gameRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	config    GameConfig
}

// NewGameService constructs a GameService.
func NewGameService(repo gameRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger, config GameConfig) *GameService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.LeaderboardTTL <= 0 {
		config.LeaderboardTTL = 30 * time.Second
	}
	if config.LeaderboardLimit <= 0 {
		config.LeaderboardLimit = 20
	}
	if config.HeartbeatTimeout <= 0 {
		config.HeartbeatTimeout = 15 * time.Second
	}
	return &GameService{repo: repo, cache: cache, validator: validate, logger: logger, config: config}
}

// CreateSession opens a fresh WAITING session.
func (s *GameService) CreateSession(ctx context.Context) (*models.RacingSession, error) {
	session := &models.RacingSession{Status: models.SessionWaiting}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	return session, nil
}

// Join adds a player. An empty session ID joins the newest waiting lobby,
// creating one when none exists. Finished sessions cannot be joined.
func (s *GameService) Join(ctx context.Context, sessionID string, req models.JoinSessionRequest) (*models.RacingSession, *models.RacingPlayer, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid join payload")
	}

	var session *models.RacingSession
	var err error
	if sessionID == "" {
		session, err = s.repo.FindWaitingSession(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			session, err = s.CreateSession(ctx)
			if err != nil {
				return nil, nil, err
			}
		} else if err != nil {
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to find lobby")
		}
	} else {
		session, err = s.repo.FindSession(ctx, sessionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
		}
	}
	if session.Status == models.SessionFinished {
		return nil, nil, appErrors.Clone(appErrors.ErrConflict, "session already finished")
	}

	carColor := req.CarColor
	if carColor == "" {
		carColor = "red"
	}
	player := &models.RacingPlayer{
		SessionID: session.ID,
		UserID:    req.UserID,
		Name:      req.Name,
		CarColor:  carColor,
		Status:    "RACING",
	}
	if err := s.repo.CreatePlayer(ctx, player); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to join session")
	}
	return session, player, nil
}

// Heartbeat refreshes a player's state. A session status in the request
// transitions the whole session, which is how the host starts and finishes
// a race.
func (s *GameService) Heartbeat(ctx context.Context, sessionID string, req models.HeartbeatRequest) (*models.RacingPlayer, error) {
	if req.PlayerID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "missing player id")
	}

	player, err := s.repo.FindPlayer(ctx, req.PlayerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "player not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load player")
	}
	if player.SessionID != sessionID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "player belongs to another session")
	}

	if req.Score != nil {
		player.Score = *req.Score
	}
	if req.Speed != nil {
		player.Speed = *req.Speed
	}
	if req.Status != nil {
		player.Status = *req.Status
	}
	player.LastHeartbeat = time.Now().UTC()

	if err := s.repo.UpdatePlayer(ctx, player); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update player")
	}

	if req.SessionStatus != nil {
		switch *req.SessionStatus {
		case models.SessionActive, models.SessionFinished:
			if err := s.repo.UpdateSessionStatus(ctx, sessionID, *req.SessionStatus); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
			}
			if *req.SessionStatus == models.SessionFinished && s.cache != nil {
				if err := s.cache.Invalidate(ctx, leaderboardCacheKey); err != nil {
					s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
				}
			}
		default:
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown session status")
		}
	}

	return player, nil
}

// State returns the polled view of a session: the session row and players
// by score. Players with stale heartbeats are crashed out first.
func (s *GameService) State(ctx context.Context, sessionID string) (*models.SessionState, error) {
	session, err := s.repo.FindSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if session.Status == models.SessionActive {
		cutoff := time.Now().UTC().Add(-s.config.HeartbeatTimeout)
		if err := s.repo.ExpireStalePlayers(ctx, sessionID, cutoff); err != nil {
			s.logger.Warn("failed to expire stale players", zap.Error(err))
		}
	}

	players, err := s.repo.ListPlayers(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list players")
	}
	return &models.SessionState{Session: *session, Players: players}, nil
}

// Leaderboard returns the top scores across finished sessions, cached for a
// short window.
func (s *GameService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var cached []models.LeaderboardEntry
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, leaderboardCacheKey, &cached); hit {
			return cached, nil
		}
	}

	entries, err := s.repo.Leaderboard(ctx, s.config.LeaderboardLimit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, leaderboardCacheKey, entries, s.config.LeaderboardTTL); err != nil {
			s.logger.Warn("failed to cache leaderboard", zap.Error(err))
		}
	}
	return entries, nil
}
