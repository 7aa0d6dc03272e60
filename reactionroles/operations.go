package reactionroles

import (
	"context"
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/db"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/sirupsen/logrus"
)

//ActiveFilter selects reaction roles by state when listing
type ActiveFilter int

const (
	//FilterAll lists every reaction role
	FilterAll ActiveFilter = iota
	//FilterActive lists active reaction roles
	FilterActive
	//FilterInactive lists inactive reaction roles
	FilterInactive
)

//DetailsEdit holds the new descriptive fields of a reaction role; nil fields are kept
type DetailsEdit struct {
	Name      *string
	Emoji     *string
	ChannelID *string
	MessageID *string
}

//Get fetches a reaction role of a guild. Reaction roles of other guilds are reported as not found.
func (e *Engine) Get(ctx context.Context, guildID string, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.store.GetReactionRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.GuildID != guildID {
		return nil, db.ErrNotFound
	}
	return rr, nil
}

func (e *Engine) getInactive(ctx context.Context, guildID string, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.Get(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if rr.IsActive {
		return nil, ErrActive
	}
	return rr, nil
}

//ValidateName rejects blank names
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Reason: "the name must not be empty"}
	}
	if len(name) > 100 {
		return "", &ValidationError{Reason: "the name must be at most 100 characters long"}
	}
	return name, nil
}

//CreateDefinition validates a new reaction role with its rules and stores it inactive
func (e *Engine) CreateDefinition(ctx context.Context, rr *guildmodels.ReactionRole) error {
	name, err := ValidateName(rr.Name)
	if err != nil {
		return err
	}
	rr.Name = name
	emoji, err := ResolveEmoji(e.api, rr.GuildID, rr.Emoji)
	if err != nil {
		return err
	}
	rr.Emoji = emoji.String()
	if _, err := ValidateMessage(e.api, rr.GuildID, rr.ChannelID, rr.MessageID); err != nil {
		return err
	}
	if len(rr.Changes) == 0 {
		return invalid(ErrInvalidRole, "a reaction role needs at least one role change")
	}
	for i := range rr.Changes {
		if err := ValidateChange(e.api, rr.GuildID, &rr.Changes[i]); err != nil {
			return err
		}
	}
	for _, req := range rr.Requirements {
		if _, err := ValidateRequirement(e.api, rr.GuildID, req.RoleID); err != nil {
			return err
		}
	}
	rr.IsActive = false
	if err := e.store.CreateReactionRole(ctx, rr); err != nil {
		logrus.Errorf("Failed to store reaction role %q of guild %v due to error %v", rr.Name, rr.GuildID, err)
		return err
	}
	logrus.Infof("Created reaction role %v (%q) on guild %v", rr.ID, rr.Name, rr.GuildID)
	return nil
}

//EditDetails changes name, emoji or target message of an inactive reaction role
func (e *Engine) EditDetails(ctx context.Context, guildID string, id uint, edit DetailsEdit) (*guildmodels.ReactionRole, error) {
	rr, err := e.getInactive(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if edit.Name != nil {
		if rr.Name, err = ValidateName(*edit.Name); err != nil {
			return nil, err
		}
	}
	if edit.Emoji != nil {
		emoji, err := ResolveEmoji(e.api, guildID, *edit.Emoji)
		if err != nil {
			return nil, err
		}
		rr.Emoji = emoji.String()
	}
	if edit.ChannelID != nil || edit.MessageID != nil {
		if edit.ChannelID != nil {
			rr.ChannelID = *edit.ChannelID
		}
		if edit.MessageID != nil {
			rr.MessageID = *edit.MessageID
		}
		if _, err := ValidateMessage(e.api, guildID, rr.ChannelID, rr.MessageID); err != nil {
			return nil, err
		}
	}
	if err := e.store.UpdateReactionRoleDetails(ctx, rr); err != nil {
		return nil, err
	}
	return rr, nil
}

//AddChange appends a validated role change to an inactive reaction role
func (e *Engine) AddChange(ctx context.Context, guildID string, id uint, change *guildmodels.RoleChange) error {
	if _, err := e.getInactive(ctx, guildID, id); err != nil {
		return err
	}
	if err := ValidateChange(e.api, guildID, change); err != nil {
		return err
	}
	change.ReactionRoleID = id
	return e.store.AddRoleChange(ctx, change)
}

//RemoveChange deletes a role change of an inactive reaction role
func (e *Engine) RemoveChange(ctx context.Context, guildID string, id uint, changeID uint) error {
	rr, err := e.getInactive(ctx, guildID, id)
	if err != nil {
		return err
	}
	for _, change := range rr.Changes {
		if change.ID == changeID {
			return e.store.DeleteRoleChange(ctx, changeID)
		}
	}
	return fmt.Errorf("role change %v of reaction role %v: %w", changeID, id, db.ErrNotFound)
}

//AddRequirement appends a required role to an inactive reaction role
func (e *Engine) AddRequirement(ctx context.Context, guildID string, id uint, roleID string) (*guildmodels.RoleRequirement, error) {
	rr, err := e.getInactive(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	if _, err := ValidateRequirement(e.api, guildID, roleID); err != nil {
		return nil, err
	}
	for _, existing := range rr.RequiredRoleIDs() {
		if existing == roleID {
			return nil, invalid(ErrInvalidRole, "role %v is already required", roleID)
		}
	}
	req := &guildmodels.RoleRequirement{ReactionRoleID: id, RoleID: roleID}
	if err := e.store.AddRoleRequirement(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

//RemoveRequirement deletes a requirement of an inactive reaction role
func (e *Engine) RemoveRequirement(ctx context.Context, guildID string, id uint, requirementID uint) error {
	rr, err := e.getInactive(ctx, guildID, id)
	if err != nil {
		return err
	}
	for _, req := range rr.Requirements {
		if req.ID == requirementID {
			return e.store.DeleteRoleRequirement(ctx, requirementID)
		}
	}
	return fmt.Errorf("requirement %v of reaction role %v: %w", requirementID, id, db.ErrNotFound)
}

//DeleteDefinition deactivates a reaction role if needed and deletes it with all of its rules
func (e *Engine) DeleteDefinition(ctx context.Context, guildID string, id uint) error {
	rr, err := e.Get(ctx, guildID, id)
	if err != nil {
		return err
	}
	if rr.IsActive {
		if err := e.deactivate(ctx, rr); err != nil {
			return fmt.Errorf("could not deactivate reaction role %v before deleting it: %w", id, err)
		}
	}
	if err := e.store.DeleteReactionRole(ctx, id); err != nil {
		return err
	}
	logrus.Infof("Deleted reaction role %v of guild %v", id, guildID)
	return nil
}

//ListDefinitions returns the reaction roles of a guild ordered by id
func (e *Engine) ListDefinitions(ctx context.Context, guildID string, filter ActiveFilter) ([]guildmodels.ReactionRole, error) {
	rrs, err := e.store.ListReactionRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if filter == FilterAll {
		return rrs, nil
	}
	res := rrs[:0]
	for _, rr := range rrs {
		if rr.IsActive == (filter == FilterActive) {
			res = append(res, rr)
		}
	}
	return res, nil
}

//ActivateInGuild activates one reaction role of a guild
func (e *Engine) ActivateInGuild(ctx context.Context, guildID string, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.Get(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	return rr, e.activate(ctx, rr)
}

//DeactivateInGuild deactivates one reaction role of a guild
func (e *Engine) DeactivateInGuild(ctx context.Context, guildID string, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.Get(ctx, guildID, id)
	if err != nil {
		return nil, err
	}
	return rr, e.deactivate(ctx, rr)
}
