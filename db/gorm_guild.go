package db

import (
	"context"
	"errors"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//GetOrCreateGuild fetches a guild with a given ID from the database, creating a new one if it does not exist.
func (s *GormStore) GetOrCreateGuild(ctx context.Context, id string) (*guildmodels.DiscordGuild, error) {
	var guildObj guildmodels.DiscordGuild
	err := withRetry(ctx, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			err := tx.First(&guildObj, "guild_id = ?", id).Error
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			logrus.Infof("Inserting new guild id %v into database.", id)
			guildObj = guildmodels.DefaultGuild(id)
			return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&guildObj).Error
		})
	})
	if err != nil {
		logrus.Errorf("Failed to query database for guild %v because: %v.", id, err)
		return nil, err
	}
	return &guildObj, nil
}

//AddAdminRole adds a roleID to the list of AdminRoles for the given guild.
func (s *GormStore) AddAdminRole(ctx context.Context, gid string, roleID string) (int, error) {
	var updated int
	err := withRetry(ctx, func() error {
		updated = 0
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var guildObj guildmodels.DiscordGuild
			err := tx.First(&guildObj, "guild_id = ?", gid).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				guildObj = guildmodels.DefaultGuild(gid)
			} else if err != nil {
				return err
			}
			if guildObj.HasAdminRole([]string{roleID}) {
				return nil
			}
			guildObj.AdminRoles = append(guildObj.AdminRoles, roleID)
			if err := tx.Save(&guildObj).Error; err != nil {
				return err
			}
			updated = 1
			return nil
		})
	})
	if err != nil {
		logrus.Warnf("Encountered error appending admin role to DB: %v", err)
		return 0, err
	}
	return updated, nil
}
