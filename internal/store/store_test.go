package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/pubsub"
)

func taskDef() entity.Definition {
	return entity.Definition{Name: "task", KeyField: "id"}
}

func newTaskStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New(taskDef(), opts...)
	t.Cleanup(s.Destroy)
	return s
}

func addTask(t *testing.T, s *Store, id string, fields map[string]any) *entity.Entity {
	t.Helper()
	if fields == nil {
		fields = map[string]any{}
	}
	fields["id"] = id
	return s.Add(entity.MustNew("id", fields), pubsub.SourceUser)
}

func keys(es []*entity.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.Key())
	}
	return out
}

func TestStore_AddAndFindByID(t *testing.T) {
	s := newTaskStore(t)

	e := addTask(t, s, "a", map[string]any{"title": "first"})
	require.Equal(t, 1, s.Len())
	require.Same(t, e, s.FindByID("a"))
	require.Nil(t, s.FindByID("zzz"))
}

func TestStore_AddDuplicateOverwritesInPlace(t *testing.T) {
	s := newTaskStore(t)

	var disposed []string
	old := entity.MustNew("id", map[string]any{"id": "a", "rev": 1},
		entity.WithDisposer(func() { disposed = append(disposed, "old") }))
	s.Add(old, pubsub.SourceUser)
	addTask(t, s, "b", nil)

	var added []string
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		if ev.Type == pubsub.ItemAdded {
			added = append(added, ev.Payload.Entity.Key())
		}
	})

	fresh := entity.MustNew("id", map[string]any{"id": "a", "rev": 2})
	s.Add(fresh, pubsub.SourceUser)

	require.Equal(t, 2, s.Len())
	require.Same(t, fresh, s.FindByID("a"))
	require.Equal(t, []string{"old"}, disposed, "replaced entity is disposed")
	require.Equal(t, []string{"a"}, added, "overwrite emits a fresh ItemAdded")

	// The sequence slot is reused, not re-appended.
	require.Equal(t, []string{"a", "b"}, keys(s.Find(entity.All)))
}

func TestStore_AddRejectsForeignKeyField(t *testing.T) {
	s := newTaskStore(t)
	e := entity.MustNew("uuid", map[string]any{"uuid": "x"})
	require.Panics(t, func() { s.Add(e, pubsub.SourceUser) })
}

func TestStore_Update(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"title": "before", "priority": 1})

	var got []pubsub.Event[ItemEvent]
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		got = append(got, ev)
	})

	e, err := s.Update("a", map[string]any{"title": "after"}, pubsub.SourceUser)
	require.NoError(t, err)

	title, _ := e.Get("title")
	require.Equal(t, "after", title)

	require.Len(t, got, 2)
	require.Equal(t, pubsub.ItemWillUpdate, got[0].Type)
	require.Equal(t, map[string]any{"title": "after"}, got[0].Payload.Input)
	require.Equal(t, pubsub.ItemUpdated, got[1].Type)
	require.Equal(t, "before", got[1].Payload.DataBefore["title"])
	require.Equal(t, 1, got[1].Payload.DataBefore["priority"])
}

func TestStore_UpdateMissingIsNotFound(t *testing.T) {
	s := newTaskStore(t)

	_, err := s.Update("ghost", map[string]any{"title": "x"}, pubsub.SourceUser)
	require.Error(t, err)
	require.True(t, IsNotFound(err))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpdateKeyFieldIsImmutable(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", nil)

	_, err := s.Update("a", map[string]any{"id": "b"}, pubsub.SourceUser)
	require.ErrorIs(t, err, ErrImmutableKey)

	// Restating the current identity is not a change.
	_, err = s.Update("a", map[string]any{"id": "a", "title": "fine"}, pubsub.SourceUser)
	require.NoError(t, err)
}

func TestStore_WillUpdateHandlerRemovingEntityAbortsUpdate(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", nil)

	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		if ev.Type == pubsub.ItemWillUpdate {
			s.RemoveByID(ev.Payload.Entity.Key(), pubsub.SourceUser)
		}
	})

	_, err := s.Update("a", map[string]any{"title": "x"}, pubsub.SourceUser)
	require.True(t, IsNotFound(err))
	require.Nil(t, s.FindByID("a"))
}

func TestStore_RemoveByID(t *testing.T) {
	s := newTaskStore(t)
	var disposed bool
	s.Add(entity.MustNew("id", map[string]any{"id": "a"},
		entity.WithDisposer(func() { disposed = true })), pubsub.SourceUser)

	var removed []string
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		if ev.Type == pubsub.ItemRemoved {
			removed = append(removed, ev.Payload.Entity.Key())
		}
	})

	require.True(t, s.RemoveByID("a", pubsub.SourceUser))
	require.True(t, disposed)
	require.Nil(t, s.FindByID("a"))
	require.Equal(t, 0, s.Len())

	require.False(t, s.RemoveByID("a", pubsub.SourceUser))
	require.Equal(t, []string{"a"}, removed, "absent removal emits nothing")
}

func TestStore_EventOrderMatchesSubscriptionOrder(t *testing.T) {
	s := newTaskStore(t)

	var trail []string
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		trail = append(trail, "first:"+string(ev.Type))
	})
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		trail = append(trail, "second:"+string(ev.Type))
	})

	addTask(t, s, "a", nil)
	require.Equal(t, []string{"first:itemAdded", "second:itemAdded"}, trail)
}

func TestStore_HandlersSeeCommittedState(t *testing.T) {
	s := newTaskStore(t)

	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		id := ev.Payload.Entity.Key()
		switch ev.Type {
		case pubsub.ItemAdded:
			require.NotNil(t, s.FindByID(id))
		case pubsub.ItemWillUpdate:
			title, _ := s.FindByID(id).Get("title")
			require.Equal(t, "old", title)
		case pubsub.ItemUpdated:
			title, _ := s.FindByID(id).Get("title")
			require.Equal(t, "new", title)
		case pubsub.ItemRemoved:
			require.Nil(t, s.FindByID(id))
		}
	})

	addTask(t, s, "a", map[string]any{"title": "old"})
	_, err := s.Update("a", map[string]any{"title": "new"}, pubsub.SourceUser)
	require.NoError(t, err)
	require.True(t, s.RemoveByID("a", pubsub.SourceUser))
}

func TestStore_AssertFindByID(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", nil)

	e, err := s.AssertFindByID("a")
	require.NoError(t, err)
	require.Equal(t, "a", e.Key())

	_, err = s.AssertFindByID("missing")
	require.True(t, IsNotFound(err))

	_, err = s.AssertFindByID("missing", "task vanished mid-flight")
	require.EqualError(t, err, "task vanished mid-flight")
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	require.Equal(t, "missing", nf.Key)
}

func TestStore_FindByUniqueIndex(t *testing.T) {
	var diags []error
	s := newTaskStore(t, WithDiagnostics(func(err error) { diags = append(diags, err) }))

	addTask(t, s, "a", map[string]any{"slug": "alpha"})
	addTask(t, s, "b", map[string]any{"slug": "beta"})

	require.Equal(t, "b", s.FindByUniqueIndex("slug", "beta").Key())
	require.Nil(t, s.FindByUniqueIndex("slug", "gamma"))
	require.Empty(t, diags)

	// A duplicated value is diagnosed but still resolves to the first match
	// in insertion order.
	addTask(t, s, "c", map[string]any{"slug": "alpha"})
	require.Equal(t, "a", s.FindByUniqueIndex("slug", "alpha").Key())
	require.Len(t, diags, 1)
	var amb *AmbiguousUniqueIndexError
	require.True(t, errors.As(diags[0], &amb))
	require.Equal(t, "slug", amb.Field)
	require.Equal(t, 2, amb.Count)

	_, err := s.AssertFindByUniqueIndex("slug", "gamma")
	require.True(t, IsNotFound(err))
}

func TestStore_UniqueIndexDistinguishesValueClasses(t *testing.T) {
	var diags []error
	s := newTaskStore(t, WithDiagnostics(func(err error) { diags = append(diags, err) }))

	addTask(t, s, "a", map[string]any{"slug": 1})
	addTask(t, s, "b", map[string]any{"slug": "1"})

	// The number 1 and the string "1" are different values, not duplicates.
	require.Equal(t, "a", s.FindByUniqueIndex("slug", 1).Key())
	require.Equal(t, "b", s.FindByUniqueIndex("slug", "1").Key())
	require.Empty(t, diags)
}

func TestStore_AccessValidatorFiltersReads(t *testing.T) {
	def := taskDef()
	def.AccessValidator = func(e *entity.Entity, ctx any) bool {
		owner, _ := e.Get("owner")
		return owner == ctx
	}
	s := New(def, WithContext("me"))
	t.Cleanup(s.Destroy)

	addTask(t, s, "mine", map[string]any{"owner": "me"})
	addTask(t, s, "theirs", map[string]any{"owner": "them"})

	require.Equal(t, 2, s.Len(), "Len counts before access filtering")
	require.Nil(t, s.FindByID("theirs"))
	require.Equal(t, []string{"mine"}, keys(s.Find(entity.All)))
	require.Nil(t, s.FindByUniqueIndex("owner", "them"))

	// Re-owning the entity must flip its verdict.
	_, err := s.Update("theirs", map[string]any{"owner": "me"}, pubsub.SourceUser)
	require.NoError(t, err)
	require.NotNil(t, s.FindByID("theirs"))
	require.Equal(t, []string{"mine", "theirs"}, keys(s.Find(entity.All)))
}

func TestStore_GroupLifecycle(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"group": "x"})
	addTask(t, s, "b", map[string]any{"group": "x"})
	addTask(t, s, "c", map[string]any{"group": "y"})

	ix := s.KeyIndex("group")
	require.Equal(t, []string{"a", "b"}, keys(ix.Find("x")))
	require.Equal(t, []string{"c"}, keys(s.Query(entity.Eq("group", "y")).All()))

	require.True(t, s.RemoveByID("b", pubsub.SourceUser))
	require.Equal(t, []string{"a"}, keys(ix.Find("x")))
}

func TestStore_Feed(t *testing.T) {
	s := newTaskStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := s.Feed(ctx)
	addTask(t, s, "a", nil)

	select {
	case ev := <-feed:
		require.Equal(t, pubsub.ItemAdded, ev.Type)
		require.Equal(t, "a", ev.Payload.Entity.Key())
	case <-time.After(time.Second):
		t.Fatal("no event on async feed")
	}
}

func TestStore_DestroyRunsCleanupsOnceInOrder(t *testing.T) {
	s := New(taskDef())

	var trail []string
	s.Add(entity.MustNew("id", map[string]any{"id": "a"},
		entity.WithDisposer(func() { trail = append(trail, "a") })), pubsub.SourceUser)
	s.Add(entity.MustNew("id", map[string]any{"id": "b"},
		entity.WithDisposer(func() { trail = append(trail, "b") })), pubsub.SourceUser)

	s.Destroy()
	require.Equal(t, []string{"a", "b"}, trail, "disposers run in insertion order")

	require.Panics(t, func() { s.Destroy() })
	require.Panics(t, func() { s.FindByID("a") })
	require.Panics(t, func() { s.Add(entity.MustNew("id", map[string]any{"id": "c"}), pubsub.SourceUser) })
}
