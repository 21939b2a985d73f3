// Package notify fans sync results out to in-process subscribers such as the
// UI bridge. Delivery is synchronous, in subscription order, and a panicking
// subscriber does not stop the others.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/dmitrijs2005/codexnotes/internal/logging"
)

type Kind string

const (
	FolderUpdated     Kind = "folder updated"
	NoteUpdated       Kind = "note updated"
	CollaboratorAdded Kind = "collaborator added"
	SyncCompleted     Kind = "sync"
)

// Event carries exactly one payload matching Kind. SyncCompleted has none.
type Event struct {
	Kind         Kind                 `json:"kind"`
	Folder       *models.Folder       `json:"folder,omitempty"`
	Note         *models.Note         `json:"note,omitempty"`
	IsRootFolder bool                 `json:"isRootFolder,omitempty"`
	Collaborator *models.Collaborator `json:"collaborator,omitempty"`
}

func FolderEvent(f models.Folder) Event {
	return Event{Kind: FolderUpdated, Folder: &f}
}

func NoteEvent(n models.Note, inRoot bool) Event {
	return Event{Kind: NoteUpdated, Note: &n, IsRootFolder: inRoot}
}

func CollaboratorEvent(c models.Collaborator) Event {
	return Event{Kind: CollaboratorAdded, Collaborator: &c}
}

type Subscriber interface {
	Notify(ctx context.Context, ev Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(ctx context.Context, ev Event)

func (f SubscriberFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

// Publisher is what producers depend on.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
	log    logging.Logger
}

type subscription struct {
	id int
	s  Subscriber
}

func New(log logging.Logger) *Notifier {
	if log == nil {
		log = logging.Nop()
	}
	return &Notifier{log: log}
}

// Subscribe registers s and returns a function that removes it again.
func (n *Notifier) Subscribe(s Subscriber) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, s: s})

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, sub := range n.subs {
				if sub.id == id {
					n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish delivers ev to every current subscriber before returning.
func (n *Notifier) Publish(ctx context.Context, ev Event) {
	n.mu.RLock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.RUnlock()

	for _, sub := range subs {
		n.deliver(ctx, sub.s, ev)
	}
}

func (n *Notifier) deliver(ctx context.Context, s Subscriber, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error(ctx, "subscriber panicked", "kind", string(ev.Kind), "panic", fmt.Sprint(r))
		}
	}()
	s.Notify(ctx, ev)
}

// Len reports the number of subscribers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs)
}
