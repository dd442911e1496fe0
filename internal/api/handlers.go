package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"clinic-chatbot/internal/auth"
	"clinic-chatbot/internal/core"
	"clinic-chatbot/internal/store"
)

type APIHandler struct {
	chatService *core.ChatService
	summarizer  *core.SummarizeService
}

func NewAPIHandler(cs *core.ChatService, ss *core.SummarizeService) *APIHandler {
	return &APIHandler{
		chatService: cs,
		summarizer:  ss,
	}
}

// IdentityMiddleware resolves the caller's identity from a bearer token when
// one is supplied. Requests without a token pass through; handlers then
// accept an explicit userId field as a fallback, and reject the request with
// 401 when neither yields an identity.
func (h *APIHandler) IdentityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const userIDContextKey contextKey = "userID"

// resolveUserID prefers the identity established by the middleware and falls
// back to one the client passed explicitly.
func resolveUserID(r *http.Request, fallback string) string {
	if userID, ok := r.Context().Value(userIDContextKey).(string); ok && userID != "" {
		return userID
	}
	return fallback
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}

type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversationId"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := resolveUserID(r, req.UserID)
	reply, conversationID, err := h.chatService.SendMessage(r.Context(), userID, req.ConversationID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingIdentity):
			writeError(w, http.StatusUnauthorized, "Unauthorized: user not identified.")
		case errors.Is(err, core.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "Please provide a message.")
		case errors.Is(err, store.ErrRevisionConflict):
			writeError(w, http.StatusConflict, "Conversation was updated concurrently. Please retry.")
		case errors.Is(err, core.ErrModelUnavailable):
			log.Printf("Model call failed for user %s: %v", userID, err)
			writeError(w, http.StatusServiceUnavailable, "Error connecting to the model.")
		default:
			log.Printf("Error handling chat for user %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to process message.")
		}
		return
	}

	writeJSON(w, ChatResponse{Response: reply, ConversationID: conversationID})
}

type SummarizeRequest struct {
	ConversationText string `json:"conversationText"`
	ConversationID   string `json:"conversationId,omitempty"`
	UserID           string `json:"userId,omitempty"`
}

type SummarizeResponse struct {
	Title string `json:"title"`
}

func (h *APIHandler) SummarizeHandler(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID := resolveUserID(r, req.UserID)
	title, err := h.summarizer.Summarize(r.Context(), userID, req.ConversationID, req.ConversationText)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrMissingIdentity):
			writeError(w, http.StatusUnauthorized, "Unauthorized: user not identified.")
		case errors.Is(err, core.ErrEmptyMessage):
			writeError(w, http.StatusBadRequest, "Please provide conversation text.")
		case errors.Is(err, core.ErrModelUnavailable):
			log.Printf("Title generation failed for user %s: %v", userID, err)
			writeError(w, http.StatusServiceUnavailable, "Error generating summary title.")
		default:
			log.Printf("Error summarizing conversation for user %s: %v", userID, err)
			writeError(w, http.StatusInternalServerError, "Failed to summarize conversation.")
		}
		return
	}

	writeJSON(w, SummarizeResponse{Title: title})
}

type HistoryResponse struct {
	Conversations []store.Conversation `json:"conversations"`
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	userID := resolveUserID(r, r.URL.Query().Get("userId"))
	conversations, err := h.chatService.GetHistory(userID)
	if err != nil {
		if errors.Is(err, core.ErrMissingIdentity) {
			writeError(w, http.StatusUnauthorized, "Unauthorized: user not identified.")
			return
		}
		log.Printf("Error fetching conversation history for user %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "Error fetching conversation history.")
		return
	}

	if conversations == nil {
		conversations = []store.Conversation{}
	}
	writeJSON(w, HistoryResponse{Conversations: conversations})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
