package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// GameRepository manages persistence for racing sessions and players.
type GameRepository struct {
	db *sqlx.DB
}

// NewGameRepository constructs a GameRepository.
func NewGameRepository(db *sqlx.DB) *GameRepository {
	return &GameRepository{db: db}
}

// CreateSession opens a new session in the WAITING state.
func (r *GameRepository) CreateSession(ctx context.Context, session *models.RacingSession) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now
	const query = `INSERT INTO racing_sessions (id, status, created_at, updated_at)
        VALUES (:id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("create racing session: %w", err)
	}
	return nil
}

// FindSession returns a session by identifier.
func (r *GameRepository) FindSession(ctx context.Context, id string) (*models.RacingSession, error) {
	const query = `SELECT id, status, created_at, updated_at FROM racing_sessions WHERE id = $1 LIMIT 1`
	var session models.RacingSession
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find racing session: %w", err)
	}
	return &session, nil
}

// FindWaitingSession returns the most recent joinable session, if any.
func (r *GameRepository) FindWaitingSession(ctx context.Context) (*models.RacingSession, error) {
	const query = `SELECT id, status, created_at, updated_at FROM racing_sessions
        WHERE status = $1 ORDER BY created_at DESC LIMIT 1`
	var session models.RacingSession
	if err := r.db.GetContext(ctx, &session, query, models.SessionWaiting); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find waiting session: %w", err)
	}
	return &session, nil
}

// UpdateSessionStatus transitions a session through its lifecycle.
func (r *GameRepository) UpdateSessionStatus(ctx context.Context, id string, status models.SessionStatus) error {
	const query = `UPDATE racing_sessions SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	return nil
}

// CreatePlayer adds a player to a session.
func (r *GameRepository) CreatePlayer(ctx context.Context, player *models.RacingPlayer) error {
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = now
	}
	player.UpdatedAt = now
	if player.LastHeartbeat.IsZero() {
		player.LastHeartbeat = now
	}
	const query = `INSERT INTO racing_players (id, session_id, user_id, name, car_color, score, speed, status, last_heartbeat, created_at, updated_at)
        VALUES (:id, :session_id, :user_id, :name, :car_color, :score, :speed, :status, :last_heartbeat, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, player); err != nil {
		return fmt.Errorf("create racing player: %w", err)
	}
	return nil
}

// FindPlayer returns a player by identifier.
func (r *GameRepository) FindPlayer(ctx context.Context, id string) (*models.RacingPlayer, error) {
	const query = `SELECT id, session_id, user_id, name, car_color, score, speed, status, last_heartbeat, created_at, updated_at
        FROM racing_players WHERE id = $1 LIMIT 1`
	var player models.RacingPlayer
	if err := r.db.GetContext(ctx, &player, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find racing player: %w", err)
	}
	return &player, nil
}

// UpdatePlayer refreshes a player's score, speed, status and heartbeat.
func (r *GameRepository) UpdatePlayer(ctx context.Context, player *models.RacingPlayer) error {
	player.UpdatedAt = time.Now().UTC()
	const query = `UPDATE racing_players SET score = :score, speed = :speed, status = :status,
        last_heartbeat = :last_heartbeat, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, player); err != nil {
		return fmt.Errorf("update racing player: %w", err)
	}
	return nil
}

// ListPlayers returns a session's players ordered by score.
func (r *GameRepository) ListPlayers(ctx context.Context, sessionID string) ([]models.RacingPlayer, error) {
	const query = `SELECT id, session_id, user_id, name, car_color, score, speed, status, last_heartbeat, created_at, updated_at
        FROM racing_players WHERE session_id = $1 ORDER BY score DESC, created_at ASC`
	var players []models.RacingPlayer
	if err := r.db.SelectContext(ctx, &players, query, sessionID); err != nil {
		return nil, fmt.Errorf("list racing players: %w", err)
	}
	return players, nil
}

// Leaderboard returns the highest scores across finished sessions.
func (r *GameRepository) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT p.name AS player_name, p.car_color, p.score, p.session_id
        FROM racing_players p
        JOIN racing_sessions s ON s.id = p.session_id
        WHERE s.status = $1
        ORDER BY p.score DESC LIMIT %d`, limit)
	var entries []models.LeaderboardEntry
	if err := r.db.SelectContext(ctx, &entries, query, models.SessionFinished); err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return entries, nil
}

// ExpireStalePlayers marks players CRASHED when their heartbeat is older
// than the cutoff.
func (r *GameRepository) ExpireStalePlayers(ctx context.Context, sessionID string, cutoff time.Time) error {
	const query = `UPDATE racing_players SET status = 'CRASHED', updated_at = $3
        WHERE session_id = $1 AND last_heartbeat < $2 AND status = 'RACING'`
	if _, err := r.db.ExecContext(ctx, query, sessionID, cutoff, time.Now().UTC()); err != nil {
		return fmt.Errorf("expire stale players: %w", err)
	}
	return nil
}
