package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

//CreateReactionRole walks the user through a new reaction role and stores it once confirmed. Nothing is stored if
//the user aborts or a prompt times out, in which case ErrAborted is returned.
func (a *Assistant) CreateReactionRole(ctx context.Context, conv Conversation, guildID, userID string) (*guildmodels.ReactionRole, error) {
	rr := &guildmodels.ReactionRole{GuildID: guildID}
	status := run(ctx,
		field(conv, "What should the new reaction role be called?", false, reactionroles.ValidateName,
			func(name string) { rr.Name = name }),
		field(conv, "Which emoji should members react with?", false, a.emojiParser(guildID),
			func(e reactionroles.Emoji) { rr.Emoji = e.String() }),
		field(conv, "Which message should the reaction go on? Reply with a link to it.", false, a.messageParser(guildID),
			func(m *discordgo.Message) { rr.ChannelID, rr.MessageID = m.ChannelID, m.ID }),
		a.changesStep(conv, guildID, userID, rr),
		a.requirementsStep(conv, guildID, rr),
		func(ctx context.Context) Status {
			a.say(conv, describe(rr))
			res := confirm(ctx, conv, "Should I create this reaction role?")
			if res.Status == Continue && !res.Value {
				return Aborted
			}
			return res.Status
		},
	)
	if status == Aborted {
		a.sayAborted(conv)
		return nil, ErrAborted
	}

	if err := a.engine.CreateDefinition(ctx, rr); err != nil {
		a.say(conv, fmt.Sprintf("I could not create the reaction role: %v", failureReason(err)))
		return nil, err
	}
	a.say(conv, fmt.Sprintf("Created reaction role `%v` with id %v.", rr.Name, rr.ID))

	activate := confirm(ctx, conv, "Should I activate it now?")
	if activate.Status != Continue || !activate.Value {
		a.say(conv, fmt.Sprintf("It stays inactive until it is activated with id %v.", rr.ID))
		return rr, nil
	}
	if _, err := a.engine.Activate(ctx, rr.ID); err != nil {
		logrus.Warnf("Failed to activate new reaction role %v due to error %v", rr.ID, err)
		a.say(conv, fmt.Sprintf("I could not activate it: %v", failureReason(err)))
		return rr, nil
	}
	rr.IsActive = true
	a.say(conv, "Activated.")
	return rr, nil
}

func (a *Assistant) changesStep(conv Conversation, guildID, userID string, rr *guildmodels.ReactionRole) step {
	return func(ctx context.Context) Status {
		for {
			change := a.askChange(ctx, conv, guildID, userID, rr.ChannelID)
			if change.Status == Aborted {
				return Aborted
			}
			rr.Changes = append(rr.Changes, change.Value)
			more := confirm(ctx, conv, "Should I change another role?")
			if more.Status == Aborted {
				return Aborted
			}
			if !more.Value {
				return Continue
			}
		}
	}
}

//askChange asks for everything one role change needs
func (a *Assistant) askChange(ctx context.Context, conv Conversation, guildID, userID, channelID string) StepResult[guildmodels.RoleChange] {
	var change guildmodels.RoleChange
	var role *discordgo.Role
	status := run(ctx,
		field(conv, "Should the role be given or taken away when a member reacts? Reply `add` or `remove`.", false, parseDirection,
			func(d guildmodels.ChangeDirection) { change.Direction = d }),
		field(conv, "Which role? Reply with a mention, an id or its name.", false, a.roleParser(guildID, reactionroles.ValidateRole),
			func(r *discordgo.Role) { role, change.RoleID = r, r.ID }),
		func(ctx context.Context) Status {
			res := confirm(ctx, conv, "Should the change be undone when the member removes the reaction?")
			change.AllowToggle = res.Value
			return res.Status
		},
		func(ctx context.Context) Status {
			return a.notificationStep(ctx, conv, guildID, userID, channelID, role, &change)
		},
	)
	if status == Aborted {
		return aborted[guildmodels.RoleChange]()
	}
	return continued(change)
}

//notificationStep optionally sets up the message posted after a role change and shows a preview until the user
//accepts it
func (a *Assistant) notificationStep(ctx context.Context, conv Conversation, guildID, userID, channelID string, role *discordgo.Role, change *guildmodels.RoleChange) Status {
	want := confirm(ctx, conv, "Should I post a message after changing the role?")
	if want.Status == Aborted || !want.Value {
		return want.Status
	}
	for {
		var n reactionroles.RoleChangeNotification
		status := run(ctx,
			field(conv, "Which channel should the message be posted in?", false, a.channelParser(guildID),
				func(c *discordgo.Channel) { n.ChannelID = c.ID }),
			field(conv, fmt.Sprintf("What should the message say? Reply `%v` for no text.\nYou may use %v.", noneKeyword, strings.Join(reactionroles.Placeholders, ", ")), false, parseOptionalText,
				func(text string) { n.Content = text }),
			field(conv, fmt.Sprintf("Reply with an embed as json or `%v` for no embed.", noneKeyword), false, parseOptionalEmbed,
				func(embed string) { n.Embed = embed }),
		)
		if status == Aborted {
			return Aborted
		}
		if n.Content == "" && n.Embed == "" {
			a.say(conv, "The message needs a text or an embed. Let's try again.")
			continue
		}
		msg, err := reactionroles.RenderNotification(&n, a.previewContext(guildID, userID, channelID, role))
		if err != nil {
			a.say(conv, rejection(err))
			continue
		}
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{}}
		a.say(conv, "This is what the message will look like:")
		if err := conv.Say(msg); err != nil {
			logrus.Warnf("Failed to post notification preview due to error %v", err)
			return Aborted
		}
		ok := confirm(ctx, conv, "Should I use this message?")
		if ok.Status == Aborted {
			return Aborted
		}
		if ok.Value {
			change.MessageChannelID, change.MessageContent, change.MessageEmbed = n.ChannelID, n.Content, n.Embed
			return Continue
		}
	}
}

//previewContext fills a template context with the user running the assistant. Lookups that fail are left empty.
func (a *Assistant) previewContext(guildID, userID, channelID string, role *discordgo.Role) reactionroles.TemplateContext {
	c := reactionroles.TemplateContext{Role: role}
	var err error
	if c.Member, err = a.api.Member(guildID, userID); err != nil {
		logrus.Warnf("Failed to fetch member %v for preview due to error %v", userID, err)
	}
	if c.Guild, err = a.api.Guild(guildID); err != nil {
		logrus.Warnf("Failed to fetch guild %v for preview due to error %v", guildID, err)
	}
	if c.Channel, err = a.api.Channel(channelID); err != nil {
		logrus.Warnf("Failed to fetch channel %v for preview due to error %v", channelID, err)
	}
	return c
}

func (a *Assistant) requirementsStep(conv Conversation, guildID string, rr *guildmodels.ReactionRole) step {
	return func(ctx context.Context) Status {
		want := confirm(ctx, conv, "Should members need certain roles before this reaction role works for them?")
		if want.Status == Aborted || !want.Value {
			return want.Status
		}
		for {
			status := run(ctx, field(conv, "Which role is required?", false, a.requirementParser(guildID, rr),
				func(r *discordgo.Role) {
					rr.Requirements = append(rr.Requirements, guildmodels.RoleRequirement{RoleID: r.ID})
				}))
			if status == Aborted {
				return Aborted
			}
			more := confirm(ctx, conv, "Should I require another role?")
			if more.Status == Aborted {
				return Aborted
			}
			if !more.Value {
				return Continue
			}
		}
	}
}

func (a *Assistant) requirementParser(guildID string, rr *guildmodels.ReactionRole) parser[*discordgo.Role] {
	parse := a.roleParser(guildID, reactionroles.ValidateRequirement)
	return func(reply string) (*discordgo.Role, error) {
		role, err := parse(reply)
		if err != nil {
			return nil, err
		}
		for _, existing := range rr.RequiredRoleIDs() {
			if existing == role.ID {
				return nil, invalidReply("%v is already required", role.Name)
			}
		}
		return role, nil
	}
}

//describe renders a reaction role for confirmation prompts and edit menus
func describe(rr *guildmodels.ReactionRole) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "**%v** %v on message %v in <#%v>\n", rr.Name, rr.Emoji, rr.MessageID, rr.ChannelID)
	sb.WriteString("Role changes:\n")
	for i, c := range rr.Changes {
		sb.WriteString(describeChange(i+1, &c))
	}
	if len(rr.Requirements) > 0 {
		sb.WriteString("Required roles:\n")
		for i, r := range rr.Requirements {
			fmt.Fprintf(&sb, "%v. <@&%v>\n", i+1, r.RoleID)
		}
	}
	return sb.String()
}

func describeChange(n int, c *guildmodels.RoleChange) string {
	line := fmt.Sprintf("%v. %v <@&%v>", n, c.Direction, c.RoleID)
	if c.AllowToggle {
		line += ", undone on unreact"
	}
	if c.HasNotification() {
		line += fmt.Sprintf(", posts a message in <#%v>", c.MessageChannelID)
	}
	return line + "\n"
}

func failureReason(err error) string {
	if reason, ok := reactionroles.IsValidation(err); ok {
		return reason
	}
	return err.Error()
}
