package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/assistant"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/bwmarrin/discordgo"
)

const handleReactionRoleSyntax string = "```" +
	`!reactionrole <subcommand> (or !rr <subcommand>)

	list [active|inactive]   list the reaction roles of this server
	info <id>                show a reaction role with its role changes and requirements
	add                      set up a new reaction role step by step
	edit <id>                change an inactive reaction role step by step
	activate <id|all>        start handing out roles
	deactivate <id|all>      stop handing out roles
	delete <id>              deactivate and delete a reaction role` +
	"```"

//handleReactionRoleCommand handles every !reactionrole subcommand
func (b *ViViBot) handleReactionRoleCommand(ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response {
	switch cmd.sub {
	case "list":
		return b.listReactionRoles(ctx, cmd, msg.GuildID)
	case "info":
		return b.withID(cmd, func(id uint) Response { return b.reactionRoleInfo(ctx, cmd, msg.GuildID, id) })
	case "add":
		return b.addReactionRole(ctx, cmd, msg)
	case "edit":
		return b.withID(cmd, func(id uint) Response { return b.editReactionRole(ctx, cmd, msg, id) })
	case "activate", "deactivate":
		return b.setReactionRolesActive(ctx, cmd, msg.GuildID, cmd.sub == "activate")
	case "delete":
		return b.withID(cmd, func(id uint) Response {
			if err := b.engine.DeleteDefinition(ctx, msg.GuildID, id); err != nil {
				return errorResponse(cmd, err)
			}
			return success(cmd, fmt.Sprintf("Deleted reaction role %v.", id))
		})
	case "":
		return syntaxError(cmd, "No subcommand was given.", handleReactionRoleSyntax)
	default:
		return syntaxError(cmd, fmt.Sprintf("`%v` is not a subcommand I know.", cmd.sub), handleReactionRoleSyntax)
	}
}

//withID parses the first argument as a record id
func (b *ViViBot) withID(cmd command, run func(id uint) Response) Response {
	if len(cmd.args) != 1 {
		return syntaxError(cmd, "Expected exactly one id.", handleReactionRoleSyntax)
	}
	id, err := parseID(cmd.args[0])
	if err != nil {
		return syntaxError(cmd, err.Error(), handleReactionRoleSyntax)
	}
	return run(id)
}

func (b *ViViBot) listReactionRoles(ctx context.Context, cmd command, guildID string) Response {
	filter := reactionroles.FilterAll
	switch cmd.rest(0) {
	case "":
	case "active":
		filter = reactionroles.FilterActive
	case "inactive":
		filter = reactionroles.FilterInactive
	default:
		return syntaxError(cmd, "Reaction roles can only be filtered by `active` or `inactive`.", handleReactionRoleSyntax)
	}
	rrs, err := b.engine.ListDefinitions(ctx, guildID, filter)
	if err != nil {
		return errorResponse(cmd, err)
	}
	res := ResponseInfo{
		commandMsg: cmd.raw,
		title:      "Reaction roles",
		timestamp:  time.Now(),
	}
	if len(rrs) == 0 {
		res.description = "There are no reaction roles yet."
		return res
	}
	if len(rrs) > maxEmbedFields {
		res.description = fmt.Sprintf("Showing the first %v of %v reaction roles.", maxEmbedFields, len(rrs))
	}
	for _, rr := range rrs {
		res.fields = append(res.fields, field{
			name: fmt.Sprintf("#%v %v (%v)", rr.ID, rr.Name, stateName(rr.IsActive)),
			value: fmt.Sprintf("%v on %v\n%v role change(s), %v requirement(s)", rr.Emoji,
				messageLink(rr.GuildID, rr.ChannelID, rr.MessageID), len(rr.Changes), len(rr.Requirements)),
		})
	}
	return res
}

func (b *ViViBot) reactionRoleInfo(ctx context.Context, cmd command, guildID string, id uint) Response {
	rr, err := b.engine.Get(ctx, guildID, id)
	if err != nil {
		return errorResponse(cmd, err)
	}
	res := ResponseInfo{
		commandMsg: cmd.raw,
		title:      fmt.Sprintf("Reaction role #%v: %v", rr.ID, rr.Name),
		description: fmt.Sprintf("%v on %v\nThis reaction role is %v.", rr.Emoji,
			messageLink(rr.GuildID, rr.ChannelID, rr.MessageID), stateName(rr.IsActive)),
		timestamp: time.Now(),
	}
	for i, c := range rr.Changes {
		res.fields = append(res.fields, field{name: fmt.Sprintf("Role change %v", i+1), value: describeChange(&c)})
	}
	if len(rr.Requirements) > 0 {
		required := make([]string, 0, len(rr.Requirements))
		for _, roleID := range rr.RequiredRoleIDs() {
			required = append(required, fmt.Sprintf("<@&%v>", roleID))
		}
		res.fields = append(res.fields, field{name: "Required roles", value: strings.Join(required, ", ")})
	}
	return res
}

func describeChange(c *guildmodels.RoleChange) string {
	verb := "Gives"
	if c.Direction == guildmodels.ChangeRemove {
		verb = "Takes away"
	}
	lines := []string{fmt.Sprintf("%v <@&%v>", verb, c.RoleID)}
	if c.AllowToggle {
		lines = append(lines, "Undone when the reaction is removed")
	}
	if c.HasNotification() {
		lines = append(lines, fmt.Sprintf("Posts a message in <#%v>", c.MessageChannelID))
	}
	return strings.Join(lines, "\n")
}

func stateName(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (b *ViViBot) addReactionRole(ctx context.Context, cmd command, msg *discordgo.MessageCreate) Response {
	var rr *guildmodels.ReactionRole
	err := b.runAssistant(msg, func(s *assistant.Session) error {
		var err error
		rr, err = b.assistant.CreateReactionRole(ctx, s, msg.GuildID, msg.Author.ID)
		return err
	})
	if err != nil {
		return errorResponse(cmd, err)
	}
	return success(cmd, fmt.Sprintf("Reaction role #%v `%v` is %v.", rr.ID, rr.Name, stateName(rr.IsActive)))
}

func (b *ViViBot) editReactionRole(ctx context.Context, cmd command, msg *discordgo.MessageCreate, id uint) Response {
	err := b.runAssistant(msg, func(s *assistant.Session) error {
		return b.assistant.EditReactionRole(ctx, s, msg.GuildID, msg.Author.ID, id)
	})
	if err != nil {
		return errorResponse(cmd, err)
	}
	return success(cmd, fmt.Sprintf("Finished editing reaction role %v.", id))
}

//setReactionRolesActive activates or deactivates one reaction role or all of them
func (b *ViViBot) setReactionRolesActive(ctx context.Context, cmd command, guildID string, active bool) Response {
	if len(cmd.args) == 1 && strings.EqualFold(cmd.args[0], "all") {
		var results []reactionroles.ActivationResult
		var err error
		if active {
			results, err = b.engine.ActivateAll(ctx, guildID)
		} else {
			results, err = b.engine.DeactivateAll(ctx, guildID)
		}
		if err != nil {
			return errorResponse(cmd, err)
		}
		return activationResponse(cmd, results, active)
	}
	return b.withID(cmd, func(id uint) Response {
		var err error
		if active {
			_, err = b.engine.ActivateInGuild(ctx, guildID, id)
		} else {
			_, err = b.engine.DeactivateInGuild(ctx, guildID, id)
		}
		if err != nil {
			return errorResponse(cmd, err)
		}
		return success(cmd, fmt.Sprintf("Reaction role %v is now %v.", id, stateName(active)))
	})
}

func activationResponse(cmd command, results []reactionroles.ActivationResult, active bool) Response {
	failed := reactionroles.Failed(results)
	if failed == 0 {
		return success(cmd, fmt.Sprintf("%v reaction role(s) are now %v.", len(results), stateName(active)))
	}
	res := ResponsePartialSuccess{
		command:     cmd.label(),
		commandMsg:  cmd.raw,
		description: fmt.Sprintf("%v of %v reaction role(s) could not be changed.", failed, len(results)),
		timestamp:   time.Now(),
	}
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		reason, ok := reactionroles.IsValidation(r.Err)
		if !ok {
			reason = r.Err.Error()
		}
		res.data = append(res.data, field{name: fmt.Sprintf("#%v %v", r.ReactionRole.ID, r.ReactionRole.Name), value: reason})
	}
	return res
}
