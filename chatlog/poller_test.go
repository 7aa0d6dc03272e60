package chatlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db/dbtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord/discordtest"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/pss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGame struct {
	mu       sync.Mutex
	loginErr error
	logins   int
	messages map[string][]pss.Message
	//errs are returned, one per call, before messages are served
	errs  map[string][]error
	calls map[string]int
}

func newFakeGame() *fakeGame {
	return &fakeGame{messages: map[string][]pss.Message{}, errs: map[string][]error{}, calls: map[string]int{}}
}

func (g *fakeGame) Login(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.logins++
	if g.loginErr != nil {
		return "", g.loginErr
	}
	return "token", nil
}

func (g *fakeGame) ListMessages(ctx context.Context, channelKey, accessToken string) ([]pss.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[channelKey]++
	if errs := g.errs[channelKey]; len(errs) > 0 {
		g.errs[channelKey] = errs[1:]
		return nil, errs[0]
	}
	return append([]pss.Message{}, g.messages[channelKey]...), nil
}

func msgs(ids ...int64) []pss.Message {
	var res []pss.Message
	for _, id := range ids {
		res = append(res, pss.Message{ID: id, UserName: "user", FleetName: "fleet", Text: fmt.Sprintf("message %d", id)})
	}
	return res
}

type pollerFixture struct {
	poller *Poller
	game   *fakeGame
	api    *discordtest.Session
	store  *db.GormStore
	sleeps []time.Duration
}

func newPollerFixture(t *testing.T) *pollerFixture {
	t.Helper()
	f := &pollerFixture{
		game:  newFakeGame(),
		api:   discordtest.New("bot"),
		store: dbtest.NewStore(t),
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.poller = NewPoller(f.store, f.game, f.api, config.ChatLogConfig{
		Interval:       100 * time.Second,
		PacingFraction: 0.8,
		MaxRetries:     2,
	},
		WithRetryInterval(time.Millisecond),
		WithClock(func() time.Time { return now }),
		WithSleep(func(ctx context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
	)
	return f
}

func (f *pollerFixture) subscribe(t *testing.T, channelID, key string, cursor int64) *guildmodels.ChatLog {
	t.Helper()
	ctx := context.Background()
	cl := &guildmodels.ChatLog{GuildID: "g1", ChannelID: channelID, ChannelKey: key, Name: key}
	require.NoError(t, f.store.CreateChatLog(ctx, cl))
	if cursor > 0 {
		_, err := f.store.AdvanceChatLogCursor(ctx, cl.ID, cursor)
		require.NoError(t, err)
		cl.LastSeenMessageID = cursor
	}
	return cl
}

func (f *pollerFixture) cursor(t *testing.T, id uint) int64 {
	t.Helper()
	cl, err := f.store.GetChatLog(context.Background(), id)
	require.NoError(t, err)
	return cl.LastSeenMessageID
}

func TestRelayOnlyNewMessagesInOrder(t *testing.T) {
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 100)
	f.game.messages["public"] = msgs(98, 101, 105, 99)

	report := f.poller.RunCycle(context.Background())
	require.NoError(t, report.Err)
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 2, report.Outcomes[0].Sent)

	sent := f.api.SentTo("c1")
	require.Len(t, sent, 1)
	assert.Equal(t, "**user (fleet)**: message 101\n**user (fleet)**: message 105", sent[0].Content)
	require.NotNil(t, sent[0].AllowedMentions)
	assert.Empty(t, sent[0].AllowedMentions.Parse)
	assert.EqualValues(t, 105, f.cursor(t, cl.ID))
}

func TestCursorNeverMovesBackwards(t *testing.T) {
	ctx := context.Background()
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 0)
	f.game.messages["public"] = msgs(1, 2, 3)

	f.poller.RunCycle(ctx)
	assert.EqualValues(t, 3, f.cursor(t, cl.ID))
	assert.Len(t, f.api.SentTo("c1"), 1)

	f.poller.RunCycle(ctx)
	assert.Len(t, f.api.SentTo("c1"), 1)

	f.game.messages["public"] = msgs(2, 4)
	f.poller.RunCycle(ctx)
	sent := f.api.SentTo("c1")
	require.Len(t, sent, 2)
	assert.Equal(t, "**user (fleet)**: message 4", sent[1].Content)
	assert.EqualValues(t, 4, f.cursor(t, cl.ID))
}

func TestMaintenanceOnlyAffectsItsChannelKey(t *testing.T) {
	f := newPollerFixture(t)
	down := f.subscribe(t, "c1", "fleet-a", 10)
	up := f.subscribe(t, "c2", "fleet-b", 10)
	f.game.errs["fleet-a"] = []error{fmt.Errorf("%w: back soon", pss.ErrServerUnderMaintenance)}
	f.game.messages["fleet-a"] = msgs(11)
	f.game.messages["fleet-b"] = msgs(11, 12)

	report := f.poller.RunCycle(context.Background())
	require.NoError(t, report.Err)
	require.Len(t, report.Outcomes, 2)

	assert.Equal(t, 1, f.game.calls["fleet-a"])
	assert.EqualValues(t, 10, f.cursor(t, down.ID))
	assert.EqualValues(t, 12, f.cursor(t, up.ID))
	assert.Empty(t, f.api.SentTo("c1"))
	assert.ErrorIs(t, report.Outcomes[0].Err, pss.ErrServerUnderMaintenance)
	assert.NoError(t, report.Outcomes[1].Err)
}

func TestTransientErrorsAreRetried(t *testing.T) {
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 0)
	f.game.errs["public"] = []error{pss.ErrAPI, pss.ErrAPI}
	f.game.messages["public"] = msgs(7)

	report := f.poller.RunCycle(context.Background())
	require.Len(t, report.Outcomes, 1)
	assert.NoError(t, report.Outcomes[0].Err)
	assert.Equal(t, 3, f.game.calls["public"])
	assert.EqualValues(t, 7, f.cursor(t, cl.ID))
}

func TestRetriesAreBounded(t *testing.T) {
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 0)
	f.game.errs["public"] = []error{pss.ErrAPI, pss.ErrAPI, pss.ErrAPI, pss.ErrAPI}
	f.game.messages["public"] = msgs(7)

	report := f.poller.RunCycle(context.Background())
	require.Len(t, report.Outcomes, 1)
	assert.ErrorIs(t, report.Outcomes[0].Err, pss.ErrAPI)
	assert.Equal(t, 3, f.game.calls["public"])
	assert.Zero(t, f.cursor(t, cl.ID))
}

func TestSendFailureOnlyAffectsItsSubscription(t *testing.T) {
	f := newPollerFixture(t)
	broken := f.subscribe(t, "gone", "public", 0)
	working := f.subscribe(t, "c2", "public", 0)
	f.api.SendErrs["gone"] = discordtest.UnknownError(10003)
	f.game.messages["public"] = msgs(5, 6)

	report := f.poller.RunCycle(context.Background())
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 1, f.game.calls["public"])
	assert.Error(t, report.Outcomes[0].Err)
	assert.Zero(t, f.cursor(t, broken.ID))
	assert.EqualValues(t, 6, f.cursor(t, working.ID))
}

func TestNoSubscriptionsSkipsLogin(t *testing.T) {
	f := newPollerFixture(t)
	report := f.poller.RunCycle(context.Background())
	assert.True(t, report.Skipped)
	assert.Zero(t, f.game.logins)
}

func TestLoginFailureAbortsCycle(t *testing.T) {
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 0)
	f.game.loginErr = errors.New("bad checksum")
	f.game.messages["public"] = msgs(1)

	report := f.poller.RunCycle(context.Background())
	assert.Error(t, report.Err)
	assert.Zero(t, f.game.calls["public"])
	assert.Zero(t, f.cursor(t, cl.ID))
}

func TestPacingBetweenChannelKeys(t *testing.T) {
	f := newPollerFixture(t)
	f.subscribe(t, "c1", "a", 0)
	f.subscribe(t, "c2", "b", 0)
	f.subscribe(t, "c3", "c", 0)

	f.poller.RunCycle(context.Background())
	assert.Equal(t, []time.Duration{40 * time.Second, 80 * time.Second}, f.sleeps)
}

func TestLongBacklogIsSplitIntoPosts(t *testing.T) {
	f := newPollerFixture(t)
	cl := f.subscribe(t, "c1", "public", 0)
	var backlog []pss.Message
	for i := int64(1); i <= 60; i++ {
		backlog = append(backlog, pss.Message{ID: i, UserName: "user", Text: strings.Repeat("x", 80)})
	}
	f.game.messages["public"] = backlog

	report := f.poller.RunCycle(context.Background())
	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, 60, report.Outcomes[0].Sent)
	sent := f.api.SentTo("c1")
	assert.Greater(t, len(sent), 1)
	for _, m := range sent {
		assert.LessOrEqual(t, len([]rune(m.Content)), MaxPostLength)
	}
	assert.EqualValues(t, 60, f.cursor(t, cl.ID))
}
