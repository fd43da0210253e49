package chat_test

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"
	"time"

	"github.com/mauv0809/pickup/internal/chat"
	"github.com/mauv0809/pickup/internal/community"
	"github.com/mauv0809/pickup/internal/database"
	"github.com/mauv0809/pickup/internal/match"
	"github.com/mauv0809/pickup/internal/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	chat        chat.ChatStore
	matches     match.MatchStore
	userID      string
	matchID     string
	communityID string
}

func setup(t *testing.T) (*fixture, func()) {
	t.Helper()
	ctx := context.Background()

	db, teardown, err := database.InitDB(":memory:", "", "")
	require.NoError(t, err)

	u, err := user.New(db).Create(ctx, "Alice", "alice@example.com", "hash", 3)
	require.NoError(t, err)
	matches := match.New(db)
	m, err := matches.Create(ctx, match.Match{Sport: "Football", Location: "Park", StartTime: time.Now().Add(time.Hour), MaxPlayers: 4, CreatedBy: u.ID})
	require.NoError(t, err)
	c, err := community.New(db).Create(ctx, community.Community{Name: "Club", InviteCode: "CLUB01", CreatedBy: u.ID})
	require.NoError(t, err)

	return &fixture{
		chat:        chat.New(db),
		matches:     matches,
		userID:      u.ID,
		matchID:     m.ID,
		communityID: c.ID,
	}, teardown
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "hello", chat.Normalize("  hello \n"))
	assert.Equal(t, "", chat.Normalize("   "))

	long := strings.Repeat("é", 600)
	got := chat.Normalize(long)
	assert.Equal(t, 500, len([]rune(got)))

	// Characters outside the BMP count once and are never split.
	emoji := chat.Normalize(strings.Repeat("⚽🏀", 300))
	assert.Equal(t, 500, len([]rune(emoji)))
	assert.True(t, utf8.ValidString(emoji))
	assert.True(t, strings.HasSuffix(emoji, "🏀"))
}

func TestCreateAndList(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	first, err := f.chat.Create(ctx, chat.Message{Kind: chat.KindMatch, RoomID: f.matchID, SenderID: f.userID, Body: "  first  "})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.Timestamp.IsZero())
	assert.Equal(t, "first", first.Body)

	_, err = f.chat.Create(ctx, chat.Message{Kind: chat.KindMatch, RoomID: f.matchID, SenderID: f.userID, Body: "second"})
	require.NoError(t, err)
	_, err = f.chat.Create(ctx, chat.Message{Kind: chat.KindCommunity, RoomID: f.communityID, SenderID: f.userID, Body: "club chat"})
	require.NoError(t, err)

	matchMessages, err := f.chat.ListByMatch(ctx, f.matchID)
	require.NoError(t, err)
	require.Len(t, matchMessages, 2)
	assert.Equal(t, "first", matchMessages[0].Body)
	assert.Equal(t, "Alice", matchMessages[0].SenderName)
	assert.Equal(t, chat.KindMatch, matchMessages[0].Kind)

	communityMessages, err := f.chat.ListByCommunity(ctx, f.communityID, 300)
	require.NoError(t, err)
	require.Len(t, communityMessages, 1)
	assert.Equal(t, "club chat", communityMessages[0].Body)
}

func TestCreateRejectsInvalid(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	testCases := []struct {
		name string
		msg  chat.Message
	}{
		{name: "blank body", msg: chat.Message{Kind: chat.KindMatch, RoomID: f.matchID, SenderID: f.userID, Body: "   "}},
		{name: "unknown kind", msg: chat.Message{Kind: "team", RoomID: f.matchID, SenderID: f.userID, Body: "hi"}},
		{name: "missing room", msg: chat.Message{Kind: chat.KindMatch, SenderID: f.userID, Body: "hi"}},
		{name: "missing sender", msg: chat.Message{Kind: chat.KindMatch, RoomID: f.matchID, Body: "hi"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.chat.Create(ctx, tc.msg)
			assert.ErrorIs(t, err, chat.ErrInvalidMessage)
		})
	}
}

func TestMessagesRemovedWithMatch(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	_, err := f.chat.Create(ctx, chat.Message{Kind: chat.KindMatch, RoomID: f.matchID, SenderID: f.userID, Body: "bye"})
	require.NoError(t, err)
	require.NoError(t, f.matches.Delete(ctx, f.matchID))

	messages, err := f.chat.ListByMatch(ctx, f.matchID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestListByCommunityKeepsMostRecent(t *testing.T) {
	f, teardown := setup(t)
	defer teardown()
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := f.chat.Create(ctx, chat.Message{Kind: chat.KindCommunity, RoomID: f.communityID, SenderID: f.userID, Body: body})
		require.NoError(t, err)
	}

	messages, err := f.chat.ListByCommunity(ctx, f.communityID, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "two", messages[0].Body)
	assert.Equal(t, "three", messages[1].Body)
}
