package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/pickup/internal/metrics"
	"github.com/mauv0809/pickup/internal/notifier"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	// alwaysDryRun is set when no bot token is configured.
	alwaysDryRun bool
}

// NewNotifier creates a new Notifier. Without a token every message is only logged.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	if token == "" {
		log.Warn("SLACK_BOT_TOKEN not set, Slack notifications will be logged only")
		return &Notifier{channelID: channelID, metrics: metrics, alwaysDryRun: true}
	}
	return &Notifier{
		api:       slack.New(token),
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message, dryRun bool) (string, string, error) {
	if dryRun || s.alwaysDryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) SendGameCreated(ctx context.Context, game notifier.GameAnnouncement, dryRun bool) error {
	_, _, err := s.sendMessage(ctx, formatGameCreated(game), dryRun)
	return err
}

func (s *Notifier) SendTeamsAnnouncement(ctx context.Context, announcement notifier.TeamsAnnouncement, dryRun bool) error {
	_, _, err := s.sendMessage(ctx, formatTeamsAnnouncement(announcement), dryRun)
	return err
}

func formatStartTime(t time.Time) string {
	return t.UTC().Format("Monday 02 Jan, 15:04 MST")
}

// formatGameCreated creates the Block Kit message for a newly posted game.
func formatGameCreated(game notifier.GameAnnouncement) slack.Message {
	blocks := make([]slack.Block, 0, 2)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("New %s game posted!", game.Sport), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Where: %s\nWhen: %s\nPlayers needed: %d", game.Location, formatStartTime(game.StartTime), game.MaxPlayers)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatTeamsAnnouncement creates the Block Kit message listing both teams side by side.
func formatTeamsAnnouncement(a notifier.TeamsAnnouncement) slack.Message {
	blocks := make([]slack.Block, 0, 4)

	header := "Teams are set!"
	if a.Manual {
		header = "Teams picked by the organiser!"
	}
	blocks = append(blocks, slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", header, true, false)))

	detailsText := fmt.Sprintf("%s at %s\n%s", a.Sport, a.Location, formatStartTime(a.StartTime))
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	fields := []*slack.TextBlockObject{
		slack.NewTextBlockObject("mrkdwn", "*Team A*\n"+bulletList(a.TeamA), false, false),
		slack.NewTextBlockObject("mrkdwn", "*Team B*\n"+bulletList(a.TeamB), false, false),
	}
	blocks = append(blocks, slack.NewSectionBlock(nil, fields, nil))

	if !a.Manual {
		note := slack.NewTextBlockObject("plain_text", "Balanced automatically by skill level.", false, false)
		blocks = append(blocks, slack.NewContextBlock("", note))
	}

	return slack.NewBlockMessage(blocks...)
}

func bulletList(names []string) string {
	if len(names) == 0 {
		return "_nobody yet_"
	}
	lines := make([]string, len(names))
	for i, name := range names {
		lines[i] = "• " + name
	}
	return strings.Join(lines, "\n")
}
