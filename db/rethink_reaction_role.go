package db

import (
	"context"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/sirupsen/logrus"
	rethink "gopkg.in/gorethink/gorethink.v3"
)

//CreateReactionRole inserts the reaction role and its rules. Rethinkdb has no multi-document transactions, so a
//failed insert removes everything inserted before it.
func (s *RethinkStore) CreateReactionRole(ctx context.Context, rr *guildmodels.ReactionRole) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	id, err := s.nextID(reactionRolesTable)
	if err != nil {
		return err
	}
	rr.ID = id
	if err := s.insert(reactionRolesTable, rr); err != nil {
		return err
	}
	rollback := func(cause error) error {
		logrus.Warnf("Rolling back reaction role %v after error %v", rr.ID, cause)
		if err := s.deleteReactionRoleDocs(rr.ID); err != nil {
			logrus.Errorf("Failed to roll back reaction role %v due to error %v", rr.ID, err)
		}
		return cause
	}
	for i := range rr.Changes {
		change := &rr.Changes[i]
		change.ReactionRoleID = rr.ID
		if change.ID, err = s.nextID(roleChangesTable); err != nil {
			return rollback(err)
		}
		if err := s.insert(roleChangesTable, change); err != nil {
			return rollback(err)
		}
	}
	for i := range rr.Requirements {
		req := &rr.Requirements[i]
		req.ReactionRoleID = rr.ID
		if req.ID, err = s.nextID(roleRequirementsTable); err != nil {
			return rollback(err)
		}
		if err := s.insert(roleRequirementsTable, req); err != nil {
			return rollback(err)
		}
	}
	return nil
}

func (s *RethinkStore) loadRules(rr *guildmodels.ReactionRole) error {
	byParent := map[string]interface{}{"reaction_role_id": rr.ID}
	rr.Changes = nil
	rr.Requirements = nil
	if err := s.all(rethink.Table(roleChangesTable).Filter(byParent).OrderBy("id"), &rr.Changes); err != nil {
		return err
	}
	return s.all(rethink.Table(roleRequirementsTable).Filter(byParent).OrderBy("id"), &rr.Requirements)
}

//GetReactionRole fetches a reaction role with its rules
func (s *RethinkStore) GetReactionRole(ctx context.Context, id uint) (*guildmodels.ReactionRole, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	var rr guildmodels.ReactionRole
	if err := s.getOne(reactionRolesTable, id, &rr); err != nil {
		return nil, err
	}
	if err := s.loadRules(&rr); err != nil {
		return nil, err
	}
	return &rr, nil
}

func (s *RethinkStore) listReactionRoles(filter map[string]interface{}) ([]guildmodels.ReactionRole, error) {
	logrus.Debugf("Looking up reaction roles with filter %#v", filter)
	var rrs []guildmodels.ReactionRole
	if err := s.all(rethink.Table(reactionRolesTable).Filter(filter).OrderBy("id"), &rrs); err != nil {
		logrus.Warnf("Encountered error looking up reaction roles with filter %#v: %v.", filter, err)
		return nil, err
	}
	for i := range rrs {
		if err := s.loadRules(&rrs[i]); err != nil {
			return nil, err
		}
	}
	return rrs, nil
}

//ListReactionRoles returns every reaction role of a guild ordered by ID
func (s *RethinkStore) ListReactionRoles(ctx context.Context, guildID string) ([]guildmodels.ReactionRole, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return s.listReactionRoles(map[string]interface{}{"guild_id": guildID})
}

//ListActiveReactionRolesForMessage returns the active reaction roles placed on a message
func (s *RethinkStore) ListActiveReactionRolesForMessage(ctx context.Context, guildID, messageID string) ([]guildmodels.ReactionRole, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	return s.listReactionRoles(map[string]interface{}{
		"guild_id":   guildID,
		"message_id": messageID,
		"is_active":  true,
	})
}

//UpdateReactionRoleDetails saves the descriptive fields of a reaction role
func (s *RethinkStore) UpdateReactionRoleDetails(ctx context.Context, rr *guildmodels.ReactionRole) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(reactionRolesTable).Get(rr.ID).Update(map[string]interface{}{
		"name":       rr.Name,
		"emoji":      rr.Emoji,
		"channel_id": rr.ChannelID,
		"message_id": rr.MessageID,
	}).RunWrite(s.session))
}

//SetReactionRoleActive flips the active flag of a reaction role
func (s *RethinkStore) SetReactionRoleActive(ctx context.Context, id uint, active bool) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(reactionRolesTable).Get(id).Update(map[string]interface{}{
		"is_active": active,
	}).RunWrite(s.session))
}

func (s *RethinkStore) deleteReactionRoleDocs(id uint) error {
	byParent := map[string]interface{}{"reaction_role_id": id}
	if err := writeErr(rethink.Table(roleChangesTable).Filter(byParent).Delete().RunWrite(s.session)); err != nil {
		return err
	}
	if err := writeErr(rethink.Table(roleRequirementsTable).Filter(byParent).Delete().RunWrite(s.session)); err != nil {
		return err
	}
	return changedOne(rethink.Table(reactionRolesTable).Get(id).Delete().RunWrite(s.session))
}

//DeleteReactionRole removes a reaction role and its rules
func (s *RethinkStore) DeleteReactionRole(ctx context.Context, id uint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return s.deleteReactionRoleDocs(id)
}

func (s *RethinkStore) parentExists(id uint) error {
	var rr guildmodels.ReactionRole
	return s.getOne(reactionRolesTable, id, &rr)
}

//AddRoleChange appends a role change to an existing reaction role
func (s *RethinkStore) AddRoleChange(ctx context.Context, change *guildmodels.RoleChange) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.parentExists(change.ReactionRoleID); err != nil {
		return err
	}
	id, err := s.nextID(roleChangesTable)
	if err != nil {
		return err
	}
	change.ID = id
	return s.insert(roleChangesTable, change)
}

//DeleteRoleChange removes a single role change
func (s *RethinkStore) DeleteRoleChange(ctx context.Context, id uint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(roleChangesTable).Get(id).Delete().RunWrite(s.session))
}

//AddRoleRequirement appends a requirement to an existing reaction role
func (s *RethinkStore) AddRoleRequirement(ctx context.Context, req *guildmodels.RoleRequirement) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	if err := s.parentExists(req.ReactionRoleID); err != nil {
		return err
	}
	id, err := s.nextID(roleRequirementsTable)
	if err != nil {
		return err
	}
	req.ID = id
	return s.insert(roleRequirementsTable, req)
}

//DeleteRoleRequirement removes a single requirement
func (s *RethinkStore) DeleteRoleRequirement(ctx context.Context, id uint) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return changedOne(rethink.Table(roleRequirementsTable).Get(id).Delete().RunWrite(s.session))
}
