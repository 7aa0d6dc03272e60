package reactionroles

import (
	"context"
	"fmt"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const defaultEventTimeout = 30 * time.Second
const defaultActivationTries uint = 3

//Engine applies reaction roles and manages their lifecycle. It holds no copy of any reaction role; every event and
//operation reads the store.
type Engine struct {
	store db.ReactionRoleStore
	api   discord.API
	queue *serialQueue

	eventTimeout    time.Duration
	activationTries uint
	retryInterval   time.Duration
}

//Option customises an Engine
type Option func(*Engine)

//WithActivationRetries sets how often adding or removing the bot's reaction is attempted when discord throttles
func WithActivationRetries(tries uint, initialInterval time.Duration) Option {
	return func(e *Engine) {
		e.activationTries = tries
		e.retryInterval = initialInterval
	}
}

//WithEventTimeout bounds the time spent handling one reaction event
func WithEventTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.eventTimeout = d
	}
}

//NewEngine creates an engine backed by a store and a discord connection
func NewEngine(store db.ReactionRoleStore, api discord.API, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		api:             api,
		queue:           newSerialQueue(),
		eventTimeout:    defaultEventTimeout,
		activationTries: defaultActivationTries,
		retryInterval:   500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

//ReactionEvent is a reaction added to or removed from a message by some user
type ReactionEvent struct {
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	Emoji     discordgo.Emoji
	//IsBot is known for additions only; removals are checked against the fetched member
	IsBot bool
}

func (ev ReactionEvent) queueKey() string {
	emojiKey := ev.Emoji.ID
	if emojiKey == "" {
		emojiKey = ev.Emoji.Name
	}
	return ev.MessageID + "/" + emojiKey + "/" + ev.UserID
}

//EventFromAdd converts a gateway reaction add event
func EventFromAdd(r *discordgo.MessageReactionAdd) ReactionEvent {
	ev := ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
	}
	if r.Member != nil && r.Member.User != nil {
		ev.IsBot = r.Member.User.Bot
	}
	return ev
}

//EventFromRemove converts a gateway reaction remove event
func EventFromRemove(r *discordgo.MessageReactionRemove) ReactionEvent {
	return ReactionEvent{
		GuildID:   r.GuildID,
		ChannelID: r.ChannelID,
		MessageID: r.MessageID,
		UserID:    r.UserID,
		Emoji:     r.Emoji,
	}
}

//EnqueueReactionAdded schedules OnReactionAdded. Events of one member on one message and emoji are handled in the
//order they were enqueued.
func (e *Engine) EnqueueReactionAdded(ev ReactionEvent) {
	if ev.GuildID == "" {
		return
	}
	e.queue.enqueue(ev.queueKey(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.eventTimeout)
		defer cancel()
		e.OnReactionAdded(ctx, ev)
	})
}

//EnqueueReactionRemoved schedules OnReactionRemoved on the same queue as additions
func (e *Engine) EnqueueReactionRemoved(ev ReactionEvent) {
	if ev.GuildID == "" {
		return
	}
	e.queue.enqueue(ev.queueKey(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.eventTimeout)
		defer cancel()
		e.OnReactionRemoved(ctx, ev)
	})
}

//Wait blocks until every enqueued event has been handled
func (e *Engine) Wait() {
	e.queue.wait()
}

//OnReactionAdded applies the role changes of every matching active reaction role
func (e *Engine) OnReactionAdded(ctx context.Context, ev ReactionEvent) {
	e.handleReaction(ctx, ev, true)
}

//OnReactionRemoved reverts the toggling role changes of every matching active reaction role
func (e *Engine) OnReactionRemoved(ctx context.Context, ev ReactionEvent) {
	e.handleReaction(ctx, ev, false)
}

func (e *Engine) handleReaction(ctx context.Context, ev ReactionEvent, added bool) {
	if ev.IsBot || ev.UserID == e.api.BotUserID() {
		logrus.Debugf("Ignoring reaction by bot user %v on message %v", ev.UserID, ev.MessageID)
		return
	}
	defs, err := e.store.ListActiveReactionRolesForMessage(ctx, ev.GuildID, ev.MessageID)
	if err != nil {
		logrus.Errorf("Failed to look up reaction roles for message %v on guild %v due to error %v", ev.MessageID, ev.GuildID, err)
		return
	}
	matching := defs[:0]
	for _, def := range defs {
		emoji, err := ParseEmoji(def.Emoji)
		if err != nil {
			logrus.Warnf("Reaction role %v has unusable emoji %q: %v", def.ID, def.Emoji, err)
			continue
		}
		if emoji.Matches(&ev.Emoji) {
			matching = append(matching, def)
		}
	}
	if len(matching) == 0 {
		return
	}

	member, err := e.api.Member(ev.GuildID, ev.UserID)
	if err != nil {
		if discord.IsUnknownResource(err) {
			logrus.Debugf("Member %v left guild %v before their reaction was handled", ev.UserID, ev.GuildID)
		} else {
			logrus.Warnf("Failed to fetch member %v of guild %v due to error %v", ev.UserID, ev.GuildID, err)
		}
		return
	}
	if member.User != nil && member.User.Bot {
		return
	}
	if member.User == nil {
		member.User = &discordgo.User{ID: ev.UserID}
	}

	for i := range matching {
		e.applyReactionRole(ctx, &matching[i], member, added)
	}
}

type plannedChange struct {
	change    *guildmodels.RoleChange
	direction guildmodels.ChangeDirection
}

//planChanges works out which role changes of a reaction role are not already satisfied by the member's roles
func planChanges(rr *guildmodels.ReactionRole, memberRoles []string, added bool) []plannedChange {
	held := make(map[string]bool, len(memberRoles))
	for _, r := range memberRoles {
		held[r] = true
	}
	for _, required := range rr.RequiredRoleIDs() {
		if !held[required] {
			return nil
		}
	}
	var res []plannedChange
	for i := range rr.Changes {
		change := &rr.Changes[i]
		direction := change.Direction
		if !added {
			if !change.AllowToggle {
				continue
			}
			direction = direction.Inverse()
		}
		if (direction == guildmodels.ChangeAdd) == held[change.RoleID] {
			continue
		}
		//Later rules see the effect of earlier ones so the same role is never changed twice
		held[change.RoleID] = direction == guildmodels.ChangeAdd
		res = append(res, plannedChange{change: change, direction: direction})
	}
	return res
}

func (e *Engine) applyReactionRole(ctx context.Context, rr *guildmodels.ReactionRole, member *discordgo.Member, added bool) {
	plan := planChanges(rr, member.Roles, added)
	if len(plan) == 0 {
		logrus.Debugf("Nothing to change for member %v on reaction role %v", member.User.ID, rr.ID)
		return
	}
	var grant, revoke []string
	for _, p := range plan {
		if p.direction == guildmodels.ChangeAdd {
			grant = append(grant, p.change.RoleID)
		} else {
			revoke = append(revoke, p.change.RoleID)
		}
	}
	reason := fmt.Sprintf("Reaction role %q (#%d)", rr.Name, rr.ID)

	applied := plan
	if err := e.api.EditMemberRoles(rr.GuildID, member.User.ID, grant, revoke, reason); err != nil {
		logrus.Warnf("Batched role edit for member %v on reaction role %v failed due to error %v; retrying role by role", member.User.ID, rr.ID, err)
		applied = e.applyOneByOne(rr, member.User.ID, plan, reason)
	}

	var grantedOK, revokedOK []string
	for _, p := range applied {
		if p.direction == guildmodels.ChangeAdd {
			grantedOK = append(grantedOK, p.change.RoleID)
		} else {
			revokedOK = append(revokedOK, p.change.RoleID)
		}
	}
	member.Roles = discord.ApplyRoleDelta(member.Roles, grantedOK, revokedOK)
	logrus.Infof("Reaction role %v granted %v and revoked %v for member %v", rr.ID, grantedOK, revokedOK, member.User.ID)

	if !added {
		return
	}
	for _, p := range applied {
		if p.change.HasNotification() {
			e.notify(ctx, rr, p.change, member)
		}
	}
}

func (e *Engine) applyOneByOne(rr *guildmodels.ReactionRole, userID string, plan []plannedChange, reason string) []plannedChange {
	var applied []plannedChange
	for _, p := range plan {
		var err error
		if p.direction == guildmodels.ChangeAdd {
			err = e.api.AddMemberRole(rr.GuildID, userID, p.change.RoleID, reason)
		} else {
			err = e.api.RemoveMemberRole(rr.GuildID, userID, p.change.RoleID, reason)
		}
		if err != nil {
			logrus.Warnf("Failed to %v role %v for member %v on reaction role %v due to error %v", p.direction, p.change.RoleID, userID, rr.ID, err)
			continue
		}
		applied = append(applied, p)
	}
	return applied
}

func (e *Engine) notify(ctx context.Context, rr *guildmodels.ReactionRole, change *guildmodels.RoleChange, member *discordgo.Member) {
	if ctx.Err() != nil {
		logrus.Warnf("Skipping notification of reaction role %v: %v", rr.ID, ctx.Err())
		return
	}
	tctx := TemplateContext{Member: member}
	if guild, err := e.api.Guild(rr.GuildID); err == nil {
		tctx.Guild = guild
	} else {
		logrus.Warnf("Failed to fetch guild %v for notification due to error %v", rr.GuildID, err)
	}
	if channel, err := e.api.Channel(rr.ChannelID); err == nil {
		tctx.Channel = channel
	} else {
		logrus.Warnf("Failed to fetch channel %v for notification due to error %v", rr.ChannelID, err)
	}
	if roles, err := e.api.GuildRoles(rr.GuildID); err == nil {
		tctx.Role = findRole(roles, change.RoleID)
	} else {
		logrus.Warnf("Failed to fetch roles of guild %v for notification due to error %v", rr.GuildID, err)
	}
	msg, err := RenderNotification(NotificationOf(change), tctx)
	if err != nil {
		logrus.Warnf("Failed to render notification of role change %v due to error %v", change.ID, err)
		return
	}
	if _, err := e.api.SendMessage(change.MessageChannelID, msg); err != nil {
		logrus.Warnf("Failed to send notification of role change %v to channel %v due to error %v", change.ID, change.MessageChannelID, err)
	}
}
