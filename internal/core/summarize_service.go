package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"clinic-chatbot/internal/store"
)

// SummarizeService asks the external model to title a block of conversation
// text. The operation is stateless; when the caller names a conversation it
// owns, the produced title is additionally stored on it so the server
// remains the source of truth for sidebar titles.
type SummarizeService struct {
	dbStore     *store.SQLiteStore
	llm         CompletionClient
	instruction string
}

func NewSummarizeService(db *store.SQLiteStore, llm CompletionClient, instruction string) *SummarizeService {
	return &SummarizeService{
		dbStore:     db,
		llm:         llm,
		instruction: instruction,
	}
}

// Summarize returns a short title for the given text. conversationID may be
// empty; a non-empty id that does not resolve to a conversation owned by
// userID is ignored rather than failing the summarization.
func (s *SummarizeService) Summarize(ctx context.Context, userID, conversationID, text string) (string, error) {
	if userID == "" {
		return "", ErrMissingIdentity
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyMessage
	}

	messages := []ChatMessage{
		{Role: store.RoleSystem, Content: s.instruction},
		{Role: store.RoleUser, Content: text},
	}
	title, err := s.llm.ChatCompletion(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	title = strings.Trim(title, "\"'\n\r\t .")

	if conversationID != "" {
		if err := s.dbStore.UpdateConversationTitle(conversationID, userID, title); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				log.Printf("Not persisting title: conversation %s not found for user", conversationID)
			} else {
				return "", fmt.Errorf("failed to save title for conversation %s: %w", conversationID, err)
			}
		}
	}

	return title, nil
}
