package reactionroles

import (
	"context"
	"fmt"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/discord"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/guildmodels"
	"github.com/cenkalti/backoff/v5"
	"github.com/sirupsen/logrus"
)

//ActivationResult is the outcome of activating or deactivating one reaction role
type ActivationResult struct {
	ReactionRole guildmodels.ReactionRole
	Err          error
}

func (e *Engine) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval
	return b
}

//retryDiscord retries a reaction call while discord throttles or fails on its side
func (e *Engine) retryDiscord(ctx context.Context, call func() error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := call()
		if err == nil {
			return struct{}{}, nil
		}
		if discord.IsThrottled(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}, backoff.WithBackOff(e.newBackOff()), backoff.WithMaxTries(e.activationTries))
	return err
}

//Activate places the bot's reaction on the target message and marks the reaction role as active
func (e *Engine) Activate(ctx context.Context, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.store.GetReactionRole(ctx, id)
	if err != nil {
		return nil, err
	}
	return rr, e.activate(ctx, rr)
}

func (e *Engine) activate(ctx context.Context, rr *guildmodels.ReactionRole) error {
	if rr.IsActive {
		return ErrActive
	}
	if len(rr.Changes) == 0 {
		return invalid(ErrInvalidRole, "reaction role %v has no role changes", rr.ID)
	}
	emoji, err := ParseEmoji(rr.Emoji)
	if err != nil {
		return err
	}
	err = e.retryDiscord(ctx, func() error {
		return e.api.AddReaction(rr.ChannelID, rr.MessageID, emoji.APIName())
	})
	if err != nil {
		logrus.Warnf("Failed to activate reaction role %v on message %v due to error %v", rr.ID, rr.MessageID, err)
		if discord.IsUnknownResource(err) || discord.IsForbidden(err) {
			return invalid(ErrInvalidMessage, "could not react with %v to message %v in <#%v>", emoji, rr.MessageID, rr.ChannelID)
		}
		return fmt.Errorf("adding reaction: %w", err)
	}
	if err := e.store.SetReactionRoleActive(ctx, rr.ID, true); err != nil {
		logrus.Errorf("Reacted for reaction role %v but failed to store its activation due to error %v", rr.ID, err)
		return err
	}
	rr.IsActive = true
	logrus.Infof("Activated reaction role %v on message %v", rr.ID, rr.MessageID)
	return nil
}

//Deactivate removes the bot's reaction and marks the reaction role as inactive. A vanished message or channel
//deactivates the reaction role anyway since there is nothing left to react to.
func (e *Engine) Deactivate(ctx context.Context, id uint) (*guildmodels.ReactionRole, error) {
	rr, err := e.store.GetReactionRole(ctx, id)
	if err != nil {
		return nil, err
	}
	return rr, e.deactivate(ctx, rr)
}

func (e *Engine) deactivate(ctx context.Context, rr *guildmodels.ReactionRole) error {
	if !rr.IsActive {
		return ErrInactive
	}
	err := e.removeReaction(ctx, rr)
	if err != nil && !discord.IsUnknownResource(err) {
		logrus.Warnf("Failed to deactivate reaction role %v on message %v due to error %v", rr.ID, rr.MessageID, err)
		return fmt.Errorf("removing reaction: %w", err)
	} else if err != nil {
		logrus.Warnf("Message %v of reaction role %v is gone; marking it inactive", rr.MessageID, rr.ID)
	}
	if err := e.store.SetReactionRoleActive(ctx, rr.ID, false); err != nil {
		logrus.Errorf("Removed reaction of reaction role %v but failed to store its deactivation due to error %v", rr.ID, err)
		return err
	}
	rr.IsActive = false
	logrus.Infof("Deactivated reaction role %v on message %v", rr.ID, rr.MessageID)
	return nil
}

func (e *Engine) removeReaction(ctx context.Context, rr *guildmodels.ReactionRole) error {
	emoji, err := ParseEmoji(rr.Emoji)
	if err != nil {
		//Nothing can have been reacted with an unparseable emoji
		return nil
	}
	return e.retryDiscord(ctx, func() error {
		return e.api.RemoveOwnReaction(rr.ChannelID, rr.MessageID, emoji.APIName())
	})
}

//ActivateAll activates every inactive reaction role of a guild. Each failure is reported and does not stop the rest.
func (e *Engine) ActivateAll(ctx context.Context, guildID string) ([]ActivationResult, error) {
	return e.forAll(ctx, guildID, false, e.activate)
}

//DeactivateAll deactivates every active reaction role of a guild
func (e *Engine) DeactivateAll(ctx context.Context, guildID string) ([]ActivationResult, error) {
	return e.forAll(ctx, guildID, true, e.deactivate)
}

func (e *Engine) forAll(ctx context.Context, guildID string, active bool, op func(context.Context, *guildmodels.ReactionRole) error) ([]ActivationResult, error) {
	rrs, err := e.store.ListReactionRoles(ctx, guildID)
	if err != nil {
		return nil, err
	}
	var results []ActivationResult
	for i := range rrs {
		if rrs[i].IsActive != active {
			continue
		}
		err := op(ctx, &rrs[i])
		results = append(results, ActivationResult{ReactionRole: rrs[i], Err: err})
	}
	return results, nil
}

//Failed counts the unsuccessful results
func Failed(results []ActivationResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
