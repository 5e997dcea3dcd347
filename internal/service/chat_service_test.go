package service

import (
	"context"
	"database/sql"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type chatRepoStub struct {
	conversations map[string]*models.Conversation
	messages      []*models.Message
	summaries     []models.ConversationSummary
	allSummaries  []models.ConversationSummary
	nextID        int
}

func newChatRepoStub() *chatRepoStub {
	return &chatRepoStub{conversations: map[string]*models.Conversation{}}
}

func (s *chatRepoStub) FindConversation(_ context.Context, userA, userB string) (*models.Conversation, error) {
	for _, conv := range s.conversations {
		if (conv.UserA == userA && conv.UserB == userB) || (conv.UserA == userB && conv.UserB == userA) {
			return conv, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *chatRepoStub) FindConversationByID(_ context.Context, id string) (*models.Conversation, error) {
	conv, ok := s.conversations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return conv, nil
}

func (s *chatRepoStub) CreateConversation(_ context.Context, conversation *models.Conversation) error {
	s.nextID++
	conversation.ID = "conv-" + strconv.Itoa(s.nextID)
	s.conversations[conversation.ID] = conversation
	return nil
}

func (s *chatRepoStub) CreateMessage(_ context.Context, message *models.Message) error {
	s.messages = append(s.messages, message)
	return nil
}

func (s *chatRepoStub) ListMessages(_ context.Context, conversationID string, _ int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *chatRepoStub) ListContacts(_ context.Context, _ string) ([]models.ChatContact, error) {
	return nil, nil
}

func (s *chatRepoStub) ListConversations(_ context.Context, _ string) ([]models.ConversationSummary, error) {
	return s.summaries, nil
}

func (s *chatRepoStub) ListAllConversations(_ context.Context) ([]models.ConversationSummary, error) {
	return s.allSummaries, nil
}

func TestSendMessageOpensConversation(t *testing.T) {
	repo := newChatRepoStub()
	svc := NewChatService(repo, nil, nil)

	message, err := svc.SendMessage(context.Background(), models.SendMessageRequest{
		SenderID:    "user-1",
		RecipientID: "user-2",
		Content:     "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "TEXT", message.Type)
	assert.NotEmpty(t, message.ConversationID)
	require.Len(t, repo.conversations, 1)
}

func TestSendMessageReusesConversation(t *testing.T) {
	repo := newChatRepoStub()
	repo.conversations["conv-1"] = &models.Conversation{ID: "conv-1", UserA: "user-2", UserB: "user-1"}
	svc := NewChatService(repo, nil, nil)

	message, err := svc.SendMessage(context.Background(), models.SendMessageRequest{
		SenderID:    "user-1",
		RecipientID: "user-2",
		Content:     "hi again",
	})
	require.NoError(t, err)
	assert.Equal(t, "conv-1", message.ConversationID)
	assert.Len(t, repo.conversations, 1)
}

func TestSendMessageToSelfRejected(t *testing.T) {
	svc := NewChatService(newChatRepoStub(), nil, nil)

	_, err := svc.SendMessage(context.Background(), models.SendMessageRequest{
		SenderID:    "user-1",
		RecipientID: "user-1",
		Content:     "echo",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMessagesRequireParticipant(t *testing.T) {
	repo := newChatRepoStub()
	repo.conversations["conv-1"] = &models.Conversation{ID: "conv-1", UserA: "user-1", UserB: "user-2"}
	svc := NewChatService(repo, nil, nil)

	_, err := svc.Messages(context.Background(), "user-3", "conv-1", 10)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestMonitorListsEveryConversation(t *testing.T) {
	last := "see you tomorrow"
	repo := newChatRepoStub()
	repo.allSummaries = []models.ConversationSummary{
		{
			Conversation: models.Conversation{ID: "conv-1", UserA: "user-1", UserB: "user-2"},
			UserAName:    "Asha Verma",
			UserBName:    "Riya Sharma",
			LastMessage:  &last,
		},
		{
			Conversation: models.Conversation{ID: "conv-2", UserA: "user-3", UserB: "user-4"},
			UserAName:    "Dev Patel",
			UserBName:    "Nikhil Rao",
		},
	}
	svc := NewChatService(repo, nil, nil)

	summaries, err := svc.Monitor(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "conv-1", summaries[0].ID)
	require.NotNil(t, summaries[0].LastMessage)
	assert.Equal(t, "see you tomorrow", *summaries[0].LastMessage)
	assert.Nil(t, summaries[1].LastMessage)
}
