package notify

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/codexnotes/internal/client/models"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_DeliversInOrder(t *testing.T) {
	n := New(nil)
	var got []string
	n.Subscribe(SubscriberFunc(func(_ context.Context, ev Event) { got = append(got, "a:"+string(ev.Kind)) }))
	n.Subscribe(SubscriberFunc(func(_ context.Context, ev Event) { got = append(got, "b:"+string(ev.Kind)) }))

	n.Publish(context.Background(), FolderEvent(models.Folder{ID: "f1"}))
	n.Publish(context.Background(), NoteEvent(models.Note{ID: "n1"}, true))

	assert.Equal(t, []string{
		"a:folder updated", "b:folder updated",
		"a:note updated", "b:note updated",
	}, got)
}

func TestNotifier_PanickingSubscriberIsIsolated(t *testing.T) {
	n := New(nil)
	called := false
	n.Subscribe(SubscriberFunc(func(context.Context, Event) { panic("boom") }))
	n.Subscribe(SubscriberFunc(func(context.Context, Event) { called = true }))

	assert.NotPanics(t, func() {
		n.Publish(context.Background(), CollaboratorEvent(models.Collaborator{ID: "c1"}))
	})
	assert.True(t, called)
}

func TestNotifier_Unsubscribe(t *testing.T) {
	n := New(nil)
	count := 0
	unsub := n.Subscribe(SubscriberFunc(func(context.Context, Event) { count++ }))
	keep := n.Subscribe(SubscriberFunc(func(context.Context, Event) {}))
	defer keep()

	n.Publish(context.Background(), Event{Kind: SyncCompleted})
	unsub()
	unsub()
	n.Publish(context.Background(), Event{Kind: SyncCompleted})

	assert.Equal(t, 1, count)
	assert.Equal(t, 1, n.Len())
}

func TestEventConstructors(t *testing.T) {
	ev := NoteEvent(models.Note{ID: "n1", FolderID: "root"}, true)
	assert.Equal(t, NoteUpdated, ev.Kind)
	assert.True(t, ev.IsRootFolder)
	assert.Equal(t, "root", ev.Note.FolderID)
	assert.Nil(t, ev.Folder)

	fe := FolderEvent(models.Folder{ID: "f"})
	assert.False(t, fe.IsRootFolder)
	assert.Equal(t, "f", fe.Folder.ID)
}
