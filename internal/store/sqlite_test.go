package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateAndGetConversation(t *testing.T) {
	s := newTestStore(t)

	conv := &Conversation{
		ConversationID: "chat_1000",
		UserID:         "user-1",
		Messages: []Message{
			{Role: RoleSystem, Content: "system prompt"},
			{Role: RoleUser, Content: "hello"},
		},
	}
	require.NoError(t, s.CreateConversation(conv))

	loaded, err := s.GetConversation("chat_1000", "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "user-1", loaded.UserID)
	assert.Equal(t, int64(1), loaded.Revision)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, RoleSystem, loaded.Messages[0].Role)
	assert.Equal(t, RoleUser, loaded.Messages[1].Role)
	assert.Equal(t, "hello", loaded.Messages[1].Content)
}

func TestGetConversationScopedToUser(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateConversation(&Conversation{
		ConversationID: "chat_1001",
		UserID:         "owner",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}))

	loaded, err := s.GetConversation("chat_1001", "someone-else")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestConversationIDUnique(t *testing.T) {
	s := newTestStore(t)

	conv := &Conversation{
		ConversationID: "chat_1002",
		UserID:         "user-1",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}
	require.NoError(t, s.CreateConversation(conv))

	dup := &Conversation{
		ConversationID: "chat_1002",
		UserID:         "user-2",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}
	assert.Error(t, s.CreateConversation(dup))
}

func TestAppendMessages(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateConversation(&Conversation{
		ConversationID: "chat_1003",
		UserID:         "user-1",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}))

	err := s.AppendMessages("chat_1003", "user-1", 1, []Message{
		{Role: RoleUser, Content: "first"},
		{Role: RoleAssistant, Content: "reply"},
	})
	require.NoError(t, err)

	loaded, err := s.GetConversation("chat_1003", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), loaded.Revision)
	require.Len(t, loaded.Messages, 3)
	assert.Equal(t, "reply", loaded.Messages[2].Content)
}

func TestAppendMessagesRevisionConflict(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateConversation(&Conversation{
		ConversationID: "chat_1004",
		UserID:         "user-1",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}))

	// First writer wins and bumps the revision.
	require.NoError(t, s.AppendMessages("chat_1004", "user-1", 1, []Message{
		{Role: RoleUser, Content: "winner"},
	}))

	// Second writer still holds revision 1 and must be rejected.
	err := s.AppendMessages("chat_1004", "user-1", 1, []Message{
		{Role: RoleUser, Content: "loser"},
	})
	assert.ErrorIs(t, err, ErrRevisionConflict)

	loaded, err := s.GetConversation("chat_1004", "user-1")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 2)
	assert.Equal(t, "winner", loaded.Messages[1].Content)
}

func TestAppendMessagesNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.AppendMessages("chat_missing", "user-1", 1, []Message{
		{Role: RoleUser, Content: "hi"},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetConversationsByUserID(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []string{"chat_a", "chat_b"} {
		require.NoError(t, s.CreateConversation(&Conversation{
			ConversationID: id,
			UserID:         "user-1",
			Messages:       []Message{{Role: RoleSystem, Content: "s"}},
		}))
	}
	require.NoError(t, s.CreateConversation(&Conversation{
		ConversationID: "chat_other",
		UserID:         "user-2",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}))

	conversations, err := s.GetConversationsByUserID("user-1")
	require.NoError(t, err)
	require.Len(t, conversations, 2)
	for _, conv := range conversations {
		assert.Equal(t, "user-1", conv.UserID)
		assert.Len(t, conv.Messages, 1)
	}
}

func TestUpdateConversationTitle(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.CreateConversation(&Conversation{
		ConversationID: "chat_1005",
		UserID:         "user-1",
		Messages:       []Message{{Role: RoleSystem, Content: "s"}},
	}))

	require.NoError(t, s.UpdateConversationTitle("chat_1005", "user-1", "Knee pain consultation"))

	loaded, err := s.GetConversation("chat_1005", "user-1")
	require.NoError(t, err)
	require.NotNil(t, loaded.Title)
	assert.Equal(t, "Knee pain consultation", *loaded.Title)

	// Wrong owner must not be able to retitle.
	assert.ErrorIs(t, s.UpdateConversationTitle("chat_1005", "user-2", "x"), ErrNotFound)
}

func TestSeedDoctorsFromFile(t *testing.T) {
	s := newTestStore(t)

	doctors := []Doctor{
		{Name: "Richard James", Speciality: "General physician", Degree: "MBBS", Experience: "4 Years", Fees: 50, AddressLine1: "17th Cross, Richmond", Available: true},
		{Name: "Emily Larson", Speciality: "Gynecologist", Degree: "MBBS", Experience: "3 Years", Fees: 60, AddressLine1: "27th Cross, Richmond", Available: false},
	}
	data, err := json.Marshal(doctors)
	require.NoError(t, err)

	seedPath := filepath.Join(t.TempDir(), "doctors.json")
	require.NoError(t, os.WriteFile(seedPath, data, 0o644))

	count, err := s.SeedDoctorsFromFile(seedPath)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	available, err := s.ListAvailableDoctors()
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "Richard James", available[0].Name)

	// Re-seeding replaces, not appends.
	count, err = s.SeedDoctorsFromFile(seedPath)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
