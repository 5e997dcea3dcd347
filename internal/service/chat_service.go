package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tejaskp/portal-api/internal/models"
	appErrors "github.com/tejaskp/portal-api/pkg/errors"
)

type chatRepository interface {
	FindConversation(ctx context.Context, userA, userB string) (*models.Conversation, error)
	FindConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	CreateConversation(ctx context.Context, conversation *models.Conversation) error
	CreateMessage(ctx context.Context, message *models.Message) error
	ListMessages(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	ListContacts(ctx context.Context, excludeUserID string) ([]models.ChatContact, error)
	ListConversations(ctx context.Context, userID string) ([]models.ConversationSummary, error)
	ListAllConversations(ctx context.Context) ([]models.ConversationSummary, error)
}

// ChatService implements 1:1 portal chat.
type ChatService struct {
	repo      chatRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChatService constructs a ChatService.
func NewChatService(repo chatRepository, validate *validator.Validate, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChatService{repo: repo, validator: validate, logger: logger}
}

// SendMessage posts a message, opening the conversation on first contact.
func (s *ChatService) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}
	if req.SenderID == req.RecipientID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message yourself")
	}

	conversation, err := s.repo.FindConversation(ctx, req.SenderID, req.RecipientID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
		}
		conversation = &models.Conversation{UserA: req.SenderID, UserB: req.RecipientID}
		if err := s.repo.CreateConversation(ctx, conversation); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conversation")
		}
	}

	msgType := req.Type
	if msgType == "" {
		msgType = "TEXT"
	}
	message := &models.Message{
		ConversationID: conversation.ID,
		SenderID:       req.SenderID,
		Content:        req.Content,
		Type:           msgType,
		FileURL:        req.FileURL,
	}
	if err := s.repo.CreateMessage(ctx, message); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store message")
	}
	return message, nil
}

// Messages lists a conversation's messages. Only participants may read it.
func (s *ChatService) Messages(ctx context.Context, userID, conversationID string, limit int) ([]models.Message, error) {
	conversation, err := s.repo.FindConversationByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conversation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	if conversation.UserA != userID && conversation.UserB != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not a participant")
	}

	messages, err := s.repo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return messages, nil
}

// WithUser returns the conversation between the caller and another user,
// opening it when absent.
func (s *ChatService) WithUser(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	if userID == otherID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot chat with yourself")
	}
	conversation, err := s.repo.FindConversation(ctx, userID, otherID)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load conversation")
	}
	conversation = &models.Conversation{UserA: userID, UserB: otherID}
	if err := s.repo.CreateConversation(ctx, conversation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open conversation")
	}
	return conversation, nil
}

// Contacts lists the users the caller may chat with.
func (s *ChatService) Contacts(ctx context.Context, userID string) ([]models.ChatContact, error) {
	contacts, err := s.repo.ListContacts(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}
	return contacts, nil
}

// Conversations lists the caller's conversations with last-message previews.
func (s *ChatService) Conversations(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	summaries, err := s.repo.ListConversations(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return summaries, nil
}

// Monitor lists every conversation with last-message previews, for admin
// oversight.
func (s *ChatService) Monitor(ctx context.Context) ([]models.ConversationSummary, error) {
	summaries, err := s.repo.ListAllConversations(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list conversations")
	}
	return summaries, nil
}
