package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/chatlog"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

type editAction struct {
	label string
	run   func(a *Assistant, ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, userID string) (Status, error)
}

var editActions = []editAction{
	{"Edit name, emoji or message", (*Assistant).editDetails},
	{"Add a role change", (*Assistant).addChange},
	{"Remove a role change", (*Assistant).removeChange},
	{"Add a required role", (*Assistant).addRequirement},
	{"Remove a required role", (*Assistant).removeRequirement},
	{"Done", nil},
}

func editMenu() string {
	var sb strings.Builder
	sb.WriteString("What would you like to do? Reply with the number of an option.\n")
	for i, action := range editActions {
		fmt.Fprintf(&sb, "%v. %v\n", i+1, action.label)
	}
	return sb.String()
}

//EditReactionRole offers a menu of edits for an inactive reaction role until the user is done. Every edit picked from
//the menu is stored right away; aborting only drops the edit in progress.
func (a *Assistant) EditReactionRole(ctx context.Context, conv Conversation, guildID, userID string, id uint) error {
	for {
		rr, err := a.engine.Get(ctx, guildID, id)
		if err != nil {
			return err
		}
		if rr.IsActive {
			return reactionroles.ErrActive
		}
		a.say(conv, describe(rr))
		choice := ask(ctx, conv, editMenu(), false, parseIndex(len(editActions)))
		if choice.Status == Aborted {
			a.say(conv, "Stopped editing.")
			return ErrAborted
		}
		action := editActions[choice.Value]
		if action.run == nil {
			a.say(conv, "All done.")
			return nil
		}
		status, err := action.run(a, ctx, conv, rr, userID)
		switch {
		case err != nil:
			if _, ok := reactionroles.IsValidation(err); !ok && !errors.Is(err, db.ErrNotFound) {
				logrus.Errorf("Failed to edit reaction role %v due to error %v", id, err)
			}
			a.say(conv, fmt.Sprintf("That did not work: %v", failureReason(err)))
		case status == Aborted:
			a.say(conv, "Stopped editing. Earlier edits were kept.")
			return ErrAborted
		}
	}
}

func (a *Assistant) editDetails(ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, _ string) (Status, error) {
	var edit reactionroles.DetailsEdit
	status := run(ctx,
		field(conv, fmt.Sprintf("What should the reaction role be called? It is currently called `%v`.", rr.Name), true, reactionroles.ValidateName,
			func(name string) { edit.Name = &name }),
		field(conv, fmt.Sprintf("Which emoji should members react with? It is currently %v.", rr.Emoji), true, a.emojiParser(rr.GuildID),
			func(e reactionroles.Emoji) {
				s := e.String()
				edit.Emoji = &s
			}),
		field(conv, fmt.Sprintf("Which message should the reaction go on? It is currently %v in <#%v>.", rr.MessageID, rr.ChannelID), true, a.messageParser(rr.GuildID),
			func(m *discordgo.Message) { edit.ChannelID, edit.MessageID = &m.ChannelID, &m.ID }),
	)
	if status == Aborted {
		return Aborted, nil
	}
	if edit == (reactionroles.DetailsEdit{}) {
		a.say(conv, "Nothing changed.")
		return Continue, nil
	}
	if _, err := a.engine.EditDetails(ctx, rr.GuildID, rr.ID, edit); err != nil {
		return Continue, err
	}
	a.say(conv, "Saved.")
	return Continue, nil
}

func (a *Assistant) addChange(ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, userID string) (Status, error) {
	change := a.askChange(ctx, conv, rr.GuildID, userID, rr.ChannelID)
	if change.Status == Aborted {
		return Aborted, nil
	}
	if err := a.engine.AddChange(ctx, rr.GuildID, rr.ID, &change.Value); err != nil {
		return Continue, err
	}
	a.say(conv, "Added the role change.")
	return Continue, nil
}

func (a *Assistant) removeChange(ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, _ string) (Status, error) {
	if len(rr.Changes) == 0 {
		a.say(conv, "There are no role changes to remove.")
		return Continue, nil
	}
	var sb strings.Builder
	sb.WriteString("Which role change should I remove?\n")
	for i, c := range rr.Changes {
		sb.WriteString(describeChange(i+1, &c))
	}
	choice := ask(ctx, conv, sb.String(), true, parseIndex(len(rr.Changes)))
	if choice.Status != Continue {
		return choice.Status, nil
	}
	if err := a.engine.RemoveChange(ctx, rr.GuildID, rr.ID, rr.Changes[choice.Value].ID); err != nil {
		return Continue, err
	}
	a.say(conv, "Removed the role change.")
	return Continue, nil
}

func (a *Assistant) addRequirement(ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, _ string) (Status, error) {
	role := ask(ctx, conv, "Which role should be required?", true, a.requirementParser(rr.GuildID, rr))
	if role.Status != Continue {
		return role.Status, nil
	}
	if _, err := a.engine.AddRequirement(ctx, rr.GuildID, rr.ID, role.Value.ID); err != nil {
		return Continue, err
	}
	a.say(conv, fmt.Sprintf("%v is now required.", role.Value.Name))
	return Continue, nil
}

func (a *Assistant) removeRequirement(ctx context.Context, conv Conversation, rr *guildmodels.ReactionRole, _ string) (Status, error) {
	if len(rr.Requirements) == 0 {
		a.say(conv, "There are no required roles to remove.")
		return Continue, nil
	}
	var sb strings.Builder
	sb.WriteString("Which required role should I remove?\n")
	for i, r := range rr.Requirements {
		fmt.Fprintf(&sb, "%v. <@&%v>\n", i+1, r.RoleID)
	}
	choice := ask(ctx, conv, sb.String(), true, parseIndex(len(rr.Requirements)))
	if choice.Status != Continue {
		return choice.Status, nil
	}
	if err := a.engine.RemoveRequirement(ctx, rr.GuildID, rr.ID, rr.Requirements[choice.Value].ID); err != nil {
		return Continue, err
	}
	a.say(conv, "Removed the required role.")
	return Continue, nil
}

//EditChatLog asks for a new name, channel and channel key of a chat log, each of which may be skipped, and saves the
//result once confirmed. The relay cursor is kept.
func (a *Assistant) EditChatLog(ctx context.Context, conv Conversation, guildID string, id uint) (*guildmodels.ChatLog, error) {
	cl, err := a.chatLogs.GetChatLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if cl.GuildID != guildID {
		return nil, db.ErrNotFound
	}
	updated := *cl
	status := run(ctx,
		field(conv, fmt.Sprintf("What should the chat log be called? It is currently called `%v`.", cl.Name), true, chatlog.ValidateName,
			func(name string) { updated.Name = name }),
		field(conv, fmt.Sprintf("Which channel should the chat be posted in? It is currently <#%v>.", cl.ChannelID), true, a.channelParser(guildID),
			func(c *discordgo.Channel) { updated.ChannelID = c.ID }),
		field(conv, fmt.Sprintf("Which game chat should be relayed? The channel key is currently `%v`.", cl.ChannelKey), true, chatlog.ValidateChannelKey,
			func(key string) { updated.ChannelKey = key }),
	)
	if status == Aborted {
		a.sayAborted(conv)
		return nil, ErrAborted
	}
	if updated == *cl {
		a.say(conv, "Nothing changed.")
		return cl, nil
	}
	a.say(conv, fmt.Sprintf("**%v** relays `%v` to <#%v>", updated.Name, updated.ChannelKey, updated.ChannelID))
	save := confirm(ctx, conv, "Should I save these changes?")
	if save.Status != Continue || !save.Value {
		a.sayAborted(conv)
		return nil, ErrAborted
	}
	if err := a.chatLogs.UpdateChatLog(ctx, &updated); err != nil {
		a.say(conv, "I could not save the chat log.")
		return nil, err
	}
	a.say(conv, "Saved.")
	return &updated, nil
}
