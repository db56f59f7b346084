package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/karbon0x/clientdb/internal/entity"
	"github.com/karbon0x/clientdb/internal/pubsub"
)

func TestQuery_EquivalentArgumentsShareOneView(t *testing.T) {
	s := newTaskStore(t)

	a := s.Query(entity.Eq("group", "x"), entity.SortBy("priority"))
	b := s.Query(entity.Eq("group", "x"), entity.SortBy("priority"))
	require.Same(t, a, b)

	require.NotSame(t, a, s.Query(entity.Eq("group", "y"), entity.SortBy("priority")))
	require.NotSame(t, a, s.Query(entity.Eq("group", "x"), entity.SortBy("priority").Desc()))
	require.NotSame(t, a, s.Query(entity.Eq("group", "x")))
}

func TestQuery_ValueClassesGetDistinctViews(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"n": 1})
	addTask(t, s, "b", map[string]any{"n": "1"})

	byNumber := s.Query(entity.Eq("n", 1))
	byString := s.Query(entity.Eq("n", "1"))
	require.NotSame(t, byNumber, byString)
	require.Equal(t, []string{"a"}, keys(byNumber.All()))
	require.Equal(t, []string{"b"}, keys(byString.All()))
}

func TestQuery_SeparatorInValueDoesNotAliasViews(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"f": "x;g eq y"})
	addTask(t, s, "b", map[string]any{"f": "x", "g": "y"})

	composite := s.Query(entity.Eq("f", "x").And("g", entity.OpEq, "y"))
	literal := s.Query(entity.Eq("f", "x;g eq y"))
	require.NotSame(t, composite, literal)
	require.Equal(t, []string{"b"}, keys(composite.All()))
	require.Equal(t, []string{"a"}, keys(literal.All()))
}

func TestQuery_PredicateViewsShareByFunctionIdentity(t *testing.T) {
	s := newTaskStore(t)

	pred := func(e *entity.Entity) bool {
		v, _ := e.Get("priority")
		return entity.CompareValues(v, 2) > 0
	}
	require.Same(t, s.Query(entity.Match(pred)), s.Query(entity.Match(pred)))
}

func TestQuery_ResultIsCachedUntilRelevantChange(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"group": "x"})
	addTask(t, s, "b", map[string]any{"group": "y"})

	v := s.Query(entity.Eq("group", "x"))
	first := v.All()
	require.Equal(t, []string{"a"}, keys(first))

	// No mutation in between: the cached slice itself comes back.
	again := v.All()
	require.True(t, &first[0] == &again[0])

	addTask(t, s, "c", map[string]any{"group": "x"})
	require.Equal(t, []string{"a", "c"}, keys(v.All()))

	_, err := s.Update("c", map[string]any{"group": "y"}, pubsub.SourceUser)
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, keys(v.All()))

	require.True(t, s.RemoveByID("a", pubsub.SourceUser))
	require.Empty(t, v.All())
}

func TestQuery_DefaultSortComesFromDefinition(t *testing.T) {
	def := taskDef()
	def.DefaultSort = entity.SortBy("priority")
	s := New(def)
	t.Cleanup(s.Destroy)

	addTask(t, s, "low", map[string]any{"priority": 9})
	addTask(t, s, "high", map[string]any{"priority": 1})

	require.Equal(t, []string{"high", "low"}, keys(s.Find(entity.All)))

	// An explicit sort overrides the default.
	require.Equal(t, []string{"low", "high"},
		keys(s.Query(entity.All, entity.SortBy("priority").Desc()).All()))
}

func TestQuery_SortIsStableOverInsertionOrder(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "b", map[string]any{"priority": 1})
	addTask(t, s, "a", map[string]any{"priority": 1})
	addTask(t, s, "c", map[string]any{"priority": 0})

	v := s.Sort(entity.SortBy("priority"))
	require.Equal(t, []string{"c", "b", "a"}, keys(v.All()))
}

func TestQuery_FirstCountEach(t *testing.T) {
	s := newTaskStore(t)
	addTask(t, s, "a", map[string]any{"group": "x"})
	addTask(t, s, "b", map[string]any{"group": "x"})
	addTask(t, s, "c", map[string]any{"group": "y"})

	v := s.Query(entity.Eq("group", "x"))
	require.Equal(t, "a", v.First().Key())
	require.Equal(t, 2, v.Count())

	var seen []string
	for e := range v.Each() {
		seen = append(seen, e.Key())
	}
	require.Equal(t, []string{"a", "b"}, seen)

	require.Nil(t, s.Query(entity.Eq("group", "z")).First())
}

func TestQuery_ViewSurvivesStoreMutationsFromHandlers(t *testing.T) {
	s := newTaskStore(t)
	v := s.Query(entity.Eq("group", "x"))

	// A handler reading the view during an add sees the committed state.
	var counts []int
	s.Events().Subscribe(func(ev pubsub.Event[ItemEvent]) {
		if ev.Type == pubsub.ItemAdded {
			counts = append(counts, v.Count())
		}
	})

	addTask(t, s, "a", map[string]any{"group": "x"})
	addTask(t, s, "b", map[string]any{"group": "x"})
	require.Equal(t, []int{1, 2}, counts)
}
