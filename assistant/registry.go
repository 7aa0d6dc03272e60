package assistant

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

//ErrSessionInProgress is returned when a user already runs an assistant in a channel
var ErrSessionInProgress = errors.New("an assistant session is already running in this channel")

type sessionKey struct {
	userID    string
	channelID string
}

type textWaiter struct {
	session uuid.UUID
	replies chan string
}

type reactionWaiter struct {
	session uuid.UUID
	userID  string
	replies chan string
}

//Registry correlates incoming messages and reactions with the assistant prompts waiting for them
type Registry struct {
	mu        sync.Mutex
	sessions  map[sessionKey]uuid.UUID
	text      map[sessionKey]textWaiter
	reactions map[string]reactionWaiter
}

//NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[sessionKey]uuid.UUID),
		text:      make(map[sessionKey]textWaiter),
		reactions: make(map[string]reactionWaiter),
	}
}

//begin claims the (user, channel) pair for a new session
func (r *Registry) begin(userID, channelID string) (uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{userID, channelID}
	if _, ok := r.sessions[key]; ok {
		return uuid.Nil, ErrSessionInProgress
	}
	id := uuid.New()
	r.sessions[key] = id
	return id, nil
}

//end releases the session and every waiter it left behind
func (r *Registry) end(userID, channelID string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{userID, channelID}
	if r.sessions[key] == id {
		delete(r.sessions, key)
	}
	if w, ok := r.text[key]; ok && w.session == id {
		delete(r.text, key)
	}
	for msgID, w := range r.reactions {
		if w.session == id {
			delete(r.reactions, msgID)
		}
	}
}

//Active returns true if the user runs a session in the channel
func (r *Registry) Active(userID, channelID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[sessionKey{userID, channelID}]
	return ok
}

func (r *Registry) awaitText(userID, channelID string, id uuid.UUID) <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan string, 1)
	r.text[sessionKey{userID, channelID}] = textWaiter{session: id, replies: ch}
	return ch
}

func (r *Registry) stopText(userID, channelID string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{userID, channelID}
	if w, ok := r.text[key]; ok && w.session == id {
		delete(r.text, key)
	}
}

func (r *Registry) awaitReaction(messageID, userID string, id uuid.UUID) <-chan string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan string, 1)
	r.reactions[messageID] = reactionWaiter{session: id, userID: userID, replies: ch}
	return ch
}

func (r *Registry) stopReaction(messageID string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w, ok := r.reactions[messageID]; ok && w.session == id {
		delete(r.reactions, messageID)
	}
}

//DeliverMessage hands a message to the prompt waiting in its channel for its author. It returns false if nothing
//was waiting, in which case the message should be handled as usual.
func (r *Registry) DeliverMessage(userID, channelID, content string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := sessionKey{userID, channelID}
	w, ok := r.text[key]
	if !ok {
		return false
	}
	delete(r.text, key)
	w.replies <- strings.TrimSpace(content)
	logrus.Debugf("Delivered reply of user %v to assistant session %v", userID, w.session)
	return true
}

//DeliverReaction hands a reaction on a confirmation prompt to its waiter. Reactions by anyone but the prompted user
//are ignored.
func (r *Registry) DeliverReaction(messageID, userID, emoji string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.reactions[messageID]
	if !ok || w.userID != userID {
		return false
	}
	delete(r.reactions, messageID)
	w.replies <- emoji
	return true
}
