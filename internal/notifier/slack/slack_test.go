package slack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSlackAPI is a mock implementation of the parts of the slack.Client that we use.
type mockSlackAPI struct {
	postMessageContextFunc func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

func (m *mockSlackAPI) PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
	if m.postMessageContextFunc != nil {
		return m.postMessageContextFunc(ctx, channelID, options...)
	}
	return "C12345", "123456789.12345", nil
}

func TestSendMessage_DryRun(t *testing.T) {
	metrics := metrics.NewMock()
	// Pass nil for the api, as it shouldn't be called in dry-run mode.
	notifier := NewNotifierWithAPI(nil, "C123", metrics)

	message := slackapi.NewBlockMessage()
	_, _, err := notifier.sendMessage(context.Background(), message, true)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
}

func TestNewNotifier_WithoutTokenIsDryRun(t *testing.T) {
	metrics := metrics.NewMock()
	n := NewNotifier("", "C123", metrics)

	err := n.SendGameCreated(context.Background(), notifier.GameAnnouncement{Sport: "Football"}, false)
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Success(t *testing.T) {
	postMessageCalled := false
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			assert.Equal(t, "C123", channelID)
			return "C123", "ts123", nil
		},
	}

	metrics := metrics.NewMock()
	n := NewNotifierWithAPI(api, "C123", metrics)

	err := n.SendTeamsAnnouncement(context.Background(), notifier.TeamsAnnouncement{
		Sport:     "Football",
		Location:  "Riverside Park",
		StartTime: time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC),
		TeamA:     []string{"Alice", "Dan"},
		TeamB:     []string{"Bob", "Cleo"},
	}, false)

	require.NoError(t, err)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 1, metrics.SlackNotifSent())
	assert.Equal(t, 0, metrics.SlackNotifFailed())
}

func TestSendMessage_Failure(t *testing.T) {
	postMessageCalled := false
	expectedErr := errors.New("slack API is down")
	api := &mockSlackAPI{
		postMessageContextFunc: func(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error) {
			postMessageCalled = true
			return "", "", expectedErr
		},
	}

	metrics := metrics.NewMock()
	notifier := NewNotifierWithAPI(api, "C123", metrics)

	_, _, err := notifier.sendMessage(context.Background(), slackapi.NewBlockMessage(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, expectedErr)
	assert.True(t, postMessageCalled, "PostMessageContext should have been called")
	assert.Equal(t, 0, metrics.SlackNotifSent())
	assert.Equal(t, 1, metrics.SlackNotifFailed())
}

func TestFormatTeamsAnnouncement(t *testing.T) {
	testCases := []struct {
		name           string
		announcement   notifier.TeamsAnnouncement
		expectedHeader string
		expectedBlocks int
	}{
		{
			name:           "automatic teams carry a context line",
			announcement:   notifier.TeamsAnnouncement{Sport: "Football", TeamA: []string{"Alice"}, TeamB: []string{"Bob"}},
			expectedHeader: "Teams are set!",
			expectedBlocks: 4,
		},
		{
			name:           "manual teams",
			announcement:   notifier.TeamsAnnouncement{Sport: "Football", TeamA: []string{"Alice"}, TeamB: []string{"Bob"}, Manual: true},
			expectedHeader: "Teams picked by the organiser!",
			expectedBlocks: 3,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg := formatTeamsAnnouncement(tc.announcement)
			require.Len(t, msg.Blocks.BlockSet, tc.expectedBlocks)

			header, ok := msg.Blocks.BlockSet[0].(*slackapi.HeaderBlock)
			require.True(t, ok)
			assert.Equal(t, tc.expectedHeader, header.Text.Text)

			teams, ok := msg.Blocks.BlockSet[2].(*slackapi.SectionBlock)
			require.True(t, ok)
			require.Len(t, teams.Fields, 2)
			assert.Contains(t, teams.Fields[0].Text, "• Alice")
			assert.Contains(t, teams.Fields[1].Text, "• Bob")
		})
	}
}

func TestBulletList(t *testing.T) {
	assert.Equal(t, "_nobody yet_", bulletList(nil))
	assert.Equal(t, "• A\n• B", bulletList([]string{"A", "B"}))
}
