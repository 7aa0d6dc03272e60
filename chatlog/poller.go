package chatlog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/config"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/pss"
	"github.com/bwmarrin/discordgo"
	"github.com/cenkalti/backoff/v5"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

//GameAPI is the part of the game api the poller needs
type GameAPI interface {
	Login(ctx context.Context) (string, error)
	ListMessages(ctx context.Context, channelKey, accessToken string) ([]pss.Message, error)
}

//Sender posts messages to discord
type Sender interface {
	SendMessage(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

//Poller relays game chat into discord channels on a fixed interval
type Poller struct {
	store  db.ChatLogStore
	game   GameAPI
	sender Sender

	interval       time.Duration
	pacingFraction float64
	maxRetries     int
	retryInterval  time.Duration
	sleep          func(ctx context.Context, d time.Duration) error
	now            func() time.Time

	cron *cron.Cron
}

//Option customises a Poller
type Option func(*Poller)

//WithSleep replaces the pacing sleep
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Poller) {
		p.sleep = sleep
	}
}

//WithRetryInterval sets the first wait between retries of a failed game api call
func WithRetryInterval(d time.Duration) Option {
	return func(p *Poller) {
		p.retryInterval = d
	}
}

//WithClock replaces the clock used for pacing
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		p.now = now
	}
}

//NewPoller creates a poller. It does nothing until Start is called.
func NewPoller(store db.ChatLogStore, game GameAPI, sender Sender, cfg config.ChatLogConfig, opts ...Option) *Poller {
	p := &Poller{
		store:          store,
		game:           game,
		sender:         sender,
		interval:       cfg.Interval,
		pacingFraction: cfg.PacingFraction,
		maxRetries:     cfg.MaxRetries,
		retryInterval:  time.Second,
		sleep:          sleepContext,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

//Start schedules a cycle every interval. A cycle still running when the next one is due causes that one to be skipped.
func (p *Poller) Start() error {
	p.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.VerbosePrintfLogger(logrus.StandardLogger()))))
	_, err := p.cron.AddFunc(fmt.Sprintf("@every %v", p.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*p.interval)
		defer cancel()
		report := p.RunCycle(ctx)
		report.Log()
	})
	if err != nil {
		return fmt.Errorf("could not schedule chat log relay: %w", err)
	}
	p.cron.Start()
	logrus.Infof("Chat log relay scheduled every %v", p.interval)
	return nil
}

//Stop unschedules the poller and waits for a running cycle to finish
func (p *Poller) Stop() {
	if p.cron == nil {
		return
	}
	<-p.cron.Stop().Done()
	logrus.Info("Chat log relay stopped.")
}

//Outcome is what happened to one subscription during a cycle
type Outcome struct {
	ChatLog guildmodels.ChatLog
	Sent    int
	//Cursor is the id of the newest message posted, or the previous cursor if nothing was posted
	Cursor int64
	Err    error
}

//CycleReport summarises one poller cycle
type CycleReport struct {
	Skipped  bool
	Err      error
	Outcomes []Outcome
}

//Log writes the report to the log
func (r CycleReport) Log() {
	switch {
	case r.Skipped:
		logrus.Debug("Chat log cycle skipped: no subscriptions")
	case r.Err != nil:
		logrus.Warnf("Chat log cycle aborted: %v", r.Err)
	default:
		sent, failed := 0, 0
		for _, o := range r.Outcomes {
			sent += o.Sent
			if o.Err != nil {
				failed++
				logrus.Warnf("Chat log %v (%v) failed: %v", o.ChatLog.ID, o.ChatLog.ChannelKey, o.Err)
			}
		}
		logrus.Infof("Chat log cycle relayed %v messages for %v subscriptions, %v failed", sent, len(r.Outcomes), failed)
	}
}

//RunCycle performs a single relay pass over every subscription
func (p *Poller) RunCycle(ctx context.Context) CycleReport {
	start := p.now()
	subs, err := p.store.ListAllChatLogs(ctx)
	if err != nil {
		return CycleReport{Err: fmt.Errorf("loading chat logs: %w", err)}
	}
	if len(subs) == 0 {
		return CycleReport{Skipped: true}
	}

	token, err := retryGame(ctx, p, "login", func() (string, error) {
		return p.game.Login(ctx)
	})
	if err != nil {
		return CycleReport{Err: fmt.Errorf("logging in to the game api: %w", err)}
	}

	groups := map[string][]guildmodels.ChatLog{}
	var keys []string
	for _, sub := range subs {
		if _, ok := groups[sub.ChannelKey]; !ok {
			keys = append(keys, sub.ChannelKey)
		}
		groups[sub.ChannelKey] = append(groups[sub.ChannelKey], sub)
	}

	var report CycleReport
	for i, key := range keys {
		if i > 0 {
			if err := p.pace(ctx, start, len(keys)-i); err != nil {
				logrus.Warnf("Chat log cycle interrupted: %v", err)
				break
			}
		}
		report.Outcomes = append(report.Outcomes, p.relayKey(ctx, key, groups[key], token)...)
	}

	for i := range report.Outcomes {
		o := &report.Outcomes[i]
		if o.Cursor <= o.ChatLog.LastSeenMessageID {
			continue
		}
		if _, err := p.store.AdvanceChatLogCursor(ctx, o.ChatLog.ID, o.Cursor); err != nil {
			logrus.Errorf("Failed to store cursor %v of chat log %v due to error %v", o.Cursor, o.ChatLog.ID, err)
			o.Err = errors.Join(o.Err, err)
		}
	}
	return report
}

//pace spreads the remaining channel keys over the configured share of the interval
func (p *Poller) pace(ctx context.Context, start time.Time, keysLeft int) error {
	budget := time.Duration(float64(p.interval)*p.pacingFraction) - p.now().Sub(start)
	if budget <= 0 || keysLeft <= 0 {
		return ctx.Err()
	}
	return p.sleep(ctx, budget/time.Duration(keysLeft))
}

func (p *Poller) relayKey(ctx context.Context, key string, subs []guildmodels.ChatLog, token string) []Outcome {
	outcomes := make([]Outcome, len(subs))
	for i, sub := range subs {
		outcomes[i] = Outcome{ChatLog: sub, Cursor: sub.LastSeenMessageID}
	}

	msgs, err := p.withRetryMessages(ctx, key, token)
	if err != nil {
		for i := range outcomes {
			outcomes[i].Err = err
		}
		return outcomes
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	for i := range outcomes {
		p.relaySubscription(&outcomes[i], msgs)
	}
	return outcomes
}

func (p *Poller) relaySubscription(o *Outcome, sorted []pss.Message) {
	first := sort.Search(len(sorted), func(i int) bool { return sorted[i].ID > o.ChatLog.LastSeenMessageID })
	fresh := sorted[first:]
	if len(fresh) == 0 {
		return
	}
	for _, post := range BuildPosts(fresh) {
		_, err := p.sender.SendMessage(o.ChatLog.ChannelID, &discordgo.MessageSend{
			Content:         post.Content,
			AllowedMentions: &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}},
		})
		if err != nil {
			o.Err = fmt.Errorf("posting to channel %v: %w", o.ChatLog.ChannelID, err)
			return
		}
		o.Cursor = post.LastID
		o.Sent += countLines(post.Content)
	}
}

func countLines(s string) int {
	n := 1
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	return n
}

func (p *Poller) withRetryMessages(ctx context.Context, key, token string) ([]pss.Message, error) {
	return retryGame(ctx, p, "chat "+key, func() ([]pss.Message, error) {
		return p.game.ListMessages(ctx, key, token)
	})
}

//retryGame retries transient game api failures a bounded number of times. Maintenance is never retried.
func retryGame[T any](ctx context.Context, p *Poller, what string, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	tries := uint(1)
	if p.maxRetries > 0 {
		tries += uint(p.maxRetries)
	}
	return backoff.Retry(ctx, func() (T, error) {
		res, err := op()
		if err == nil {
			return res, nil
		}
		if errors.Is(err, pss.ErrServerUnderMaintenance) || ctx.Err() != nil {
			return res, backoff.Permanent(err)
		}
		logrus.Debugf("Game api call %v failed, retrying: %v", what, err)
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}
