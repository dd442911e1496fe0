package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"clinic-chatbot/internal/store"
)

var (
	// ErrEmptyMessage signals a validation failure: the caller supplied no
	// message text.
	ErrEmptyMessage = errors.New("message text is required")

	// ErrMissingIdentity signals an authorization failure: no user identity
	// could be resolved for the request.
	ErrMissingIdentity = errors.New("user not identified")

	// ErrModelUnavailable wraps any failure contacting the external model.
	ErrModelUnavailable = errors.New("error connecting to the model")
)

// ChatService orchestrates a chat turn: it loads or creates the
// conversation, appends the user's message, submits the full history to the
// external model and persists the updated thread. It holds no state across
// requests; each request reconstructs the conversation from the store.
type ChatService struct {
	dbStore *store.SQLiteStore
	llm     CompletionClient
	prompts *PromptBuilder
}

func NewChatService(db *store.SQLiteStore, llm CompletionClient, prompts *PromptBuilder) *ChatService {
	return &ChatService{
		dbStore: db,
		llm:     llm,
		prompts: prompts,
	}
}

// SendMessage handles one user turn and returns the assistant's reply along
// with the conversation identifier (newly synthesized when the caller did
// not supply one, or supplied one that does not exist for this user).
//
// Nothing is persisted until the model call succeeds: a failed call leaves
// the stored conversation exactly as it was before the request.
func (s *ChatService) SendMessage(ctx context.Context, userID, conversationID, message string) (string, string, error) {
	if userID == "" {
		return "", "", ErrMissingIdentity
	}
	if strings.TrimSpace(message) == "" {
		return "", "", ErrEmptyMessage
	}

	var conv *store.Conversation
	if conversationID == "" {
		conversationID = newConversationID()
	} else {
		existing, err := s.dbStore.GetConversation(conversationID, userID)
		if err != nil {
			return "", "", fmt.Errorf("failed to load conversation: %w", err)
		}
		conv = existing
	}

	isNew := conv == nil
	if isNew {
		// Fresh conversation: seed it with the system prompt built from the
		// current doctor directory snapshot.
		conv = &store.Conversation{
			ConversationID: conversationID,
			UserID:         userID,
			Messages: []store.Message{
				{Role: store.RoleSystem, Content: s.prompts.BuildSystemPrompt()},
			},
		}
	}

	baseRevision := conv.Revision
	persisted := len(conv.Messages)

	conv.Messages = append(conv.Messages, store.Message{
		Role:    store.RoleUser,
		Content: message,
	})

	reply, err := s.llm.ChatCompletion(ctx, projectMessages(conv.Messages))
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	conv.Messages = append(conv.Messages, store.Message{
		Role:    store.RoleAssistant,
		Content: reply,
	})

	if isNew {
		if err := s.dbStore.CreateConversation(conv); err != nil {
			return "", "", fmt.Errorf("failed to save new conversation: %w", err)
		}
	} else {
		if err := s.dbStore.AppendMessages(conversationID, userID, baseRevision, conv.Messages[persisted:]); err != nil {
			return "", "", err
		}
	}

	return reply, conversationID, nil
}

// GetHistory returns every conversation owned by the user, unfiltered and
// unpaginated.
func (s *ChatService) GetHistory(userID string) ([]store.Conversation, error) {
	if userID == "" {
		return nil, ErrMissingIdentity
	}
	return s.dbStore.GetConversationsByUserID(userID)
}

// projectMessages strips stored messages down to the (role, content) pairs
// the model API expects.
func projectMessages(messages []store.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(messages))
	for _, msg := range messages {
		out = append(out, ChatMessage{Role: msg.Role, Content: msg.Content})
	}
	return out
}

var (
	idMu       sync.Mutex
	lastIDUnix int64
)

// newConversationID synthesizes an identifier in the same "chat_" + unix
// millis form clients generate, so server- and client-minted ids are
// interchangeable. Identifiers are kept strictly increasing so two
// conversations started within the same millisecond cannot collide on the
// store's uniqueness constraint.
func newConversationID() string {
	idMu.Lock()
	defer idMu.Unlock()
	now := time.Now().UnixMilli()
	if now <= lastIDUnix {
		now = lastIDUnix + 1
	}
	lastIDUnix = now
	return "chat_" + strconv.FormatInt(now, 10)
}
