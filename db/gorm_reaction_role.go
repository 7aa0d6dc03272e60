package db

import (
	"context"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func preloadRules(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Changes", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Requirements", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}

//CreateReactionRole inserts the reaction role and all of its rules in a single transaction
func (s *GormStore) CreateReactionRole(ctx context.Context, rr *guildmodels.ReactionRole) error {
	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			rr.ID = 0
			if err := tx.Omit(clause.Associations).Create(rr).Error; err != nil {
				return err
			}
			for i := range rr.Changes {
				rr.Changes[i].ID = 0
				rr.Changes[i].ReactionRoleID = rr.ID
				if err := tx.Create(&rr.Changes[i]).Error; err != nil {
					return err
				}
			}
			for i := range rr.Requirements {
				rr.Requirements[i].ID = 0
				rr.Requirements[i].ReactionRoleID = rr.ID
				if err := tx.Create(&rr.Requirements[i]).Error; err != nil {
					return err
				}
			}
			return nil
		})
	})
}

//GetReactionRole fetches a reaction role with its rules
func (s *GormStore) GetReactionRole(ctx context.Context, id uint) (*guildmodels.ReactionRole, error) {
	var rr guildmodels.ReactionRole
	err := withRetry(ctx, func() error {
		return preloadRules(s.db.WithContext(ctx)).First(&rr, id).Error
	})
	if err != nil {
		return nil, notFound(err)
	}
	return &rr, nil
}

//ListReactionRoles returns every reaction role of a guild ordered by ID
func (s *GormStore) ListReactionRoles(ctx context.Context, guildID string) ([]guildmodels.ReactionRole, error) {
	var rrs []guildmodels.ReactionRole
	err := withRetry(ctx, func() error {
		return preloadRules(s.db.WithContext(ctx)).
			Where("guild_id = ?", guildID).
			Order("id ASC").
			Find(&rrs).Error
	})
	return rrs, err
}

//ListActiveReactionRolesForMessage returns the active reaction roles placed on a message
func (s *GormStore) ListActiveReactionRolesForMessage(ctx context.Context, guildID, messageID string) ([]guildmodels.ReactionRole, error) {
	var rrs []guildmodels.ReactionRole
	err := withRetry(ctx, func() error {
		return preloadRules(s.db.WithContext(ctx)).
			Where("guild_id = ? AND message_id = ? AND is_active = ?", guildID, messageID, true).
			Order("id ASC").
			Find(&rrs).Error
	})
	return rrs, err
}

//UpdateReactionRoleDetails saves the descriptive fields of a reaction role
func (s *GormStore) UpdateReactionRoleDetails(ctx context.Context, rr *guildmodels.ReactionRole) error {
	return withRetry(ctx, func() error {
		return affectedOne(s.db.WithContext(ctx).
			Model(&guildmodels.ReactionRole{}).
			Where("id = ?", rr.ID).
			Updates(map[string]interface{}{
				"name":       rr.Name,
				"emoji":      rr.Emoji,
				"channel_id": rr.ChannelID,
				"message_id": rr.MessageID,
			}))
	})
}

//SetReactionRoleActive flips the active flag of a reaction role
func (s *GormStore) SetReactionRoleActive(ctx context.Context, id uint, active bool) error {
	return withRetry(ctx, func() error {
		var count int64
		q := s.db.WithContext(ctx).Model(&guildmodels.ReactionRole{}).Where("id = ?", id)
		if err := q.Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrNotFound
		}
		return s.db.WithContext(ctx).
			Model(&guildmodels.ReactionRole{}).
			Where("id = ?", id).
			Update("is_active", active).Error
	})
}

//DeleteReactionRole removes a reaction role and its rules in a single transaction
func (s *GormStore) DeleteReactionRole(ctx context.Context, id uint) error {
	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("reaction_role_id = ?", id).Delete(&guildmodels.RoleChange{}).Error; err != nil {
				return err
			}
			if err := tx.Where("reaction_role_id = ?", id).Delete(&guildmodels.RoleRequirement{}).Error; err != nil {
				return err
			}
			return affectedOne(tx.Delete(&guildmodels.ReactionRole{}, id))
		})
	})
}

func (s *GormStore) parentExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&guildmodels.ReactionRole{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

//AddRoleChange appends a role change to an existing reaction role
func (s *GormStore) AddRoleChange(ctx context.Context, change *guildmodels.RoleChange) error {
	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.parentExists(tx, change.ReactionRoleID); err != nil {
				return err
			}
			change.ID = 0
			return tx.Create(change).Error
		})
	})
}

//DeleteRoleChange removes a single role change
func (s *GormStore) DeleteRoleChange(ctx context.Context, id uint) error {
	return withRetry(ctx, func() error {
		return affectedOne(s.db.WithContext(ctx).Delete(&guildmodels.RoleChange{}, id))
	})
}

//AddRoleRequirement appends a requirement to an existing reaction role
func (s *GormStore) AddRoleRequirement(ctx context.Context, req *guildmodels.RoleRequirement) error {
	return withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.parentExists(tx, req.ReactionRoleID); err != nil {
				return err
			}
			req.ID = 0
			return tx.Create(req).Error
		})
	})
}

//DeleteRoleRequirement removes a single requirement
func (s *GormStore) DeleteRoleRequirement(ctx context.Context, id uint) error {
	return withRetry(ctx, func() error {
		return affectedOne(s.db.WithContext(ctx).Delete(&guildmodels.RoleRequirement{}, id))
	})
}
