package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type gameRepoStub struct {
	sessions map[string]*models.RacingSession
	players  map[string]*models.RacingPlayer

	waiting        *models.RacingSession
	leaderboard    []models.LeaderboardEntry
	expiredCutoff  *time.Time
	createdPlayers []*models.RacingPlayer
	sessionStatus  models.SessionStatus
}

func newGameRepoStub() *gameRepoStub {
	return &gameRepoStub{
		sessions: map[string]*models.RacingSession{},
		players:  map[string]*models.RacingPlayer{},
	}
}

func (s *gameRepoStub) addSession(id string, status models.SessionStatus) *models.RacingSession {
	session := &models.RacingSession{ID: id, Status: status}
	s.sessions[id] = session
	return session
}

func (s *gameRepoStub) CreateSession(_ context.Context, session *models.RacingSession) error {
	session.ID = "session-new"
	s.sessions[session.ID] = session
	return nil
}

func (s *gameRepoStub) FindSession(_ context.Context, id string) (*models.RacingSession, error) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return session, nil
}

func (s *gameRepoStub) FindWaitingSession(_ context.Context) (*models.RacingSession, error) {
	if s.waiting == nil {
		return nil, sql.ErrNoRows
	}
	return s.waiting, nil
}

func (s *gameRepoStub) UpdateSessionStatus(_ context.Context, id string, status models.SessionStatus) error {
	s.sessionStatus = status
	if session, ok := s.sessions[id]; ok {
		session.Status = status
	}
	return nil
}

func (s *gameRepoStub) CreatePlayer(_ context.Context, player *models.RacingPlayer) error {
	player.ID = "player-new"
	s.players[player.ID] = player
	s.createdPlayers = append(s.createdPlayers, player)
	return nil
}

func (s *gameRepoStub) FindPlayer(_ context.Context, id string) (*models.RacingPlayer, error) {
	player, ok := s.players[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *player
	return &copied, nil
}

func (s *gameRepoStub) UpdatePlayer(_ context.Context, player *models.RacingPlayer) error {
	s.players[player.ID] = player
	return nil
}

func (s *gameRepoStub) ListPlayers(_ context.Context, sessionID string) ([]models.RacingPlayer, error) {
	var out []models.RacingPlayer
	for _, p := range s.players {
		if p.SessionID == sessionID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *gameRepoStub) Leaderboard(_ context.Context, _ int) ([]models.LeaderboardEntry, error) {
	return s.leaderboard, nil
}

func (s *gameRepoStub) ExpireStalePlayers(_ context.Context, _ string, cutoff time.Time) error {
	s.expiredCutoff = &cutoff
	return nil
}

func newGameServiceForTest(repo *gameRepoStub) *GameService {
	return NewGameService(repo, nil, nil, nil, GameConfig{})
}

func TestJoinWithoutSessionCreatesLobby(t *testing.T) {
	repo := newGameRepoStub()
	svc := newGameServiceForTest(repo)

	session, player, err := svc.Join(context.Background(), "", models.JoinSessionRequest{Name: "Racer"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionWaiting, session.Status)
	assert.Equal(t, session.ID, player.SessionID)
	assert.Equal(t, "red", player.CarColor)
	assert.Equal(t, "RACING", player.Status)
}

func TestJoinReusesWaitingLobby(t *testing.T) {
	repo := newGameRepoStub()
	repo.waiting = repo.addSession("lobby-1", models.SessionWaiting)
	svc := newGameServiceForTest(repo)

	session, _, err := svc.Join(context.Background(), "", models.JoinSessionRequest{Name: "Racer", CarColor: "blue"})
	require.NoError(t, err)
	assert.Equal(t, "lobby-1", session.ID)
	assert.Equal(t, "blue", repo.createdPlayers[0].CarColor)
}

func TestJoinFinishedSessionConflicts(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("done", models.SessionFinished)
	svc := newGameServiceForTest(repo)

	_, _, err := svc.Join(context.Background(), "done", models.JoinSessionRequest{Name: "Racer"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestHeartbeatUpdatesPlayerState(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("s1", models.SessionActive)
	repo.players["p1"] = &models.RacingPlayer{ID: "p1", SessionID: "s1", Status: "RACING"}
	svc := newGameServiceForTest(repo)

	score := 420
	speed := 88.5
	player, err := svc.Heartbeat(context.Background(), "s1", models.HeartbeatRequest{
		PlayerID: "p1",
		Score:    &score,
		Speed:    &speed,
	})
	require.NoError(t, err)
	assert.Equal(t, 420, player.Score)
	assert.Equal(t, 88.5, player.Speed)
	assert.WithinDuration(t, time.Now().UTC(), player.LastHeartbeat, time.Minute)
}

func TestHeartbeatRejectsForeignSession(t *testing.T) {
	repo := newGameRepoStub()
	repo.players["p1"] = &models.RacingPlayer{ID: "p1", SessionID: "other"}
	svc := newGameServiceForTest(repo)

	_, err := svc.Heartbeat(context.Background(), "s1", models.HeartbeatRequest{PlayerID: "p1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestHeartbeatTransitionsSession(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("s1", models.SessionWaiting)
	repo.players["p1"] = &models.RacingPlayer{ID: "p1", SessionID: "s1"}
	svc := newGameServiceForTest(repo)

	status := models.SessionActive
	_, err := svc.Heartbeat(context.Background(), "s1", models.HeartbeatRequest{PlayerID: "p1", SessionStatus: &status})
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, repo.sessionStatus)
}

func TestHeartbeatRejectsWaitingTransition(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("s1", models.SessionActive)
	repo.players["p1"] = &models.RacingPlayer{ID: "p1", SessionID: "s1"}
	svc := newGameServiceForTest(repo)

	status := models.SessionWaiting
	_, err := svc.Heartbeat(context.Background(), "s1", models.HeartbeatRequest{PlayerID: "p1", SessionStatus: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStateExpiresStalePlayersWhileActive(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("s1", models.SessionActive)
	svc := newGameServiceForTest(repo)

	_, err := svc.State(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, repo.expiredCutoff)
	assert.WithinDuration(t, time.Now().UTC().Add(-15*time.Second), *repo.expiredCutoff, time.Minute)
}

func TestStateSkipsExpiryWhileWaiting(t *testing.T) {
	repo := newGameRepoStub()
	repo.addSession("s1", models.SessionWaiting)
	svc := newGameServiceForTest(repo)

	_, err := svc.State(context.Background(), "s1")
	require.NoError(t, err)
	assert.Nil(t, repo.expiredCutoff)
}

func TestLeaderboardWithoutCache(t *testing.T) {
	repo := newGameRepoStub()
	repo.leaderboard = []models.LeaderboardEntry{{PlayerName: "Racer", Score: 900}}
	svc := newGameServiceForTest(repo)

	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 900, entries[0].Score)
}
