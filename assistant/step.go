package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/chatlog"
	"github.com/PieInTheSky-Inc/PSS-Fleet-Helper-sub000/reactionroles"
	"github.com/sirupsen/logrus"
)

//Status is the outcome of an assistant step
type Status int

const (
	//Continue means the step produced a value
	Continue Status = iota
	//Skipped means the user kept the previous value
	Skipped
	//Aborted means the user aborted, the prompt timed out or the conversation broke down
	Aborted
)

//StepResult is what a single prompt yields
type StepResult[T any] struct {
	Status Status
	Value  T
}

func continued[T any](v T) StepResult[T] {
	return StepResult[T]{Status: Continue, Value: v}
}

func skipped[T any]() StepResult[T] {
	return StepResult[T]{Status: Skipped}
}

func aborted[T any]() StepResult[T] {
	return StepResult[T]{Status: Aborted}
}

//step runs one prompt and stores its value wherever the enclosing flow needs it
type step func(ctx context.Context) Status

//field builds a step which asks for a value and hands it to set unless the user skipped
func field[T any](conv Conversation, prompt string, allowSkip bool, parse parser[T], set func(T)) step {
	return func(ctx context.Context) Status {
		res := ask(ctx, conv, prompt, allowSkip, parse)
		if res.Status == Continue {
			set(res.Value)
		}
		return res.Status
	}
}

//run executes steps in order until one aborts
func run(ctx context.Context, steps ...step) Status {
	for _, s := range steps {
		if s(ctx) == Aborted {
			return Aborted
		}
	}
	return Continue
}

//parser turns a reply into a value. Returned errors are shown to the user before asking again.
type parser[T any] func(reply string) (T, error)

//ask repeats a prompt until the reply parses. With allowSkip the skip keyword keeps the previous value.
func ask[T any](ctx context.Context, conv Conversation, prompt string, allowSkip bool, parse parser[T]) StepResult[T] {
	if allowSkip {
		prompt = fmt.Sprintf("%v\nReply `%v` to keep the current value or `%v` to stop.", prompt, skipKeyword, abortKeyword)
	} else {
		prompt = fmt.Sprintf("%v\nReply `%v` to stop.", prompt, abortKeyword)
	}
	for {
		reply, err := conv.Ask(ctx, prompt)
		if err != nil {
			if !errors.Is(err, ErrTimeout) {
				logrus.Warnf("Assistant prompt failed due to error %v", err)
			}
			return aborted[T]()
		}
		switch strings.ToLower(reply) {
		case abortKeyword:
			return aborted[T]()
		case skipKeyword:
			if allowSkip {
				return skipped[T]()
			}
		}
		v, err := parse(reply)
		if err == nil {
			return continued(v)
		}
		if err := conv.Say(plain(rejection(err))); err != nil {
			logrus.Warnf("Failed to post assistant rejection due to error %v", err)
			return aborted[T]()
		}
	}
}

//confirm asks a yes/no question
func confirm(ctx context.Context, conv Conversation, prompt string) StepResult[bool] {
	yes, err := conv.Confirm(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrTimeout) && !errors.Is(err, ErrAborted) {
			logrus.Warnf("Assistant confirmation failed due to error %v", err)
		}
		return aborted[bool]()
	}
	return continued(yes)
}

//rejection explains why an input was refused. Unexpected errors are logged rather than shown.
func rejection(err error) string {
	reason, ok := reactionroles.IsValidation(err)
	switch {
	case ok:
	case errors.Is(err, chatlog.ErrInvalidSubscription):
		reason = err.Error()
	default:
		logrus.Warnf("Assistant could not check a reply due to error %v", err)
		reason = "I could not check that right now"
	}
	return fmt.Sprintf("That did not work: %v. Please try again.", reason)
}
