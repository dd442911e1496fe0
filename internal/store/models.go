package store

import "time"

// Message roles. A conversation always starts with exactly one system
// message; user and assistant turns alternate after it.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Conversation struct {
	ConversationID string    `json:"conversationId"`
	UserID         string    `json:"userId"`
	Title          *string   `json:"title"` // Nullable, set lazily via summarization
	Revision       int64     `json:"revision"`
	CreatedAt      time.Time `json:"createdAt"`
	Messages       []Message `json:"messages"`
}

type Message struct {
	ID             string    `json:"id"` // UUID
	ConversationID string    `json:"conversationId"`
	Role           string    `json:"role"` // "system", "user" or "assistant"
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// Doctor is a row of the practitioner directory. The chat core only reads
// it to render prompt bullets; management of the directory itself lives in
// the seeding utility.
type Doctor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Speciality   string `json:"speciality"`
	Degree       string `json:"degree"`
	Experience   string `json:"experience"`
	Fees         int    `json:"fees"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	Available    bool   `json:"available"`
}
