package kvstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetSetDeleteRoundTrip(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Set([]byte("k"), []byte("v1")))
	v, err := tx.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v1"), v)
	require.NoError(tx.Commit())

	tx = s.Begin(context.Background())
	require.NoError(tx.Delete([]byte("k")))
	_, err = tx.Get([]byte("k"))
	require.ErrorIs(err, ErrNotFound)
	require.NoError(tx.Commit())

	tx = s.Begin(context.Background())
	_, err = tx.Get([]byte("k"))
	require.ErrorIs(err, ErrNotFound)
	tx.Rollback()
}

func TestRollbackDiscardsTopLevelWrites(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Set([]byte("a"), []byte("1")))
	tx.Rollback()

	view := s.View(context.Background())
	_, err := view.Get([]byte("a"))
	require.ErrorIs(err, ErrNotFound)
	view.Rollback()
}

func TestNestedCommitMergesIntoParent(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	parent := s.Begin(context.Background())
	require.NoError(parent.Set([]byte("a"), []byte("parent")))

	child := parent.Nested()
	require.NoError(child.Set([]byte("b"), []byte("child")))
	require.NoError(child.Delete([]byte("a")))
	require.NoError(child.Commit())

	// The parent is not yet committed to the store, but its in-memory view already reflects
	// the child's merged writes.
	_, err := parent.Get([]byte("a"))
	require.ErrorIs(err, ErrNotFound)
	v, err := parent.Get([]byte("b"))
	require.NoError(err)
	require.Equal([]byte("child"), v)

	require.NoError(parent.Commit())

	view := s.View(context.Background())
	defer view.Rollback()
	_, err = view.Get([]byte("a"))
	require.ErrorIs(err, ErrNotFound)
	v, err = view.Get([]byte("b"))
	require.NoError(err)
	require.Equal([]byte("child"), v)
}

func TestNestedRollbackDiscardsChildOnly(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	parent := s.Begin(context.Background())
	require.NoError(parent.Set([]byte("a"), []byte("parent")))

	child := parent.Nested()
	require.NoError(child.Set([]byte("a"), []byte("child-overwrite")))
	require.NoError(child.Set([]byte("b"), []byte("child-only")))
	child.Rollback()

	v, err := parent.Get([]byte("a"))
	require.NoError(err)
	require.Equal([]byte("parent"), v)
	_, err = parent.Get([]byte("b"))
	require.ErrorIs(err, ErrNotFound)

	require.NoError(parent.Commit())
}

func TestNestedScopeIsolatesFromSiblings(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	parent := s.Begin(context.Background())
	require.NoError(parent.Set([]byte("counter"), []byte("0")))

	first := parent.Nested()
	require.NoError(first.Set([]byte("counter"), []byte("1")))

	second := parent.Nested()
	v, err := second.Get([]byte("counter"))
	require.NoError(err)
	require.Equal([]byte("0"), v, "a sibling scope must not observe another uncommitted sibling's writes")
	second.Rollback()

	require.NoError(first.Commit())
	v, err = parent.Get([]byte("counter"))
	require.NoError(err)
	require.Equal([]byte("1"), v)
	require.NoError(parent.Commit())
}

func TestCommitTwiceFails(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Commit())
	require.Error(tx.Commit())
}

func TestRollbackAfterCommitIsNoop(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Set([]byte("k"), []byte("v")))
	require.NoError(tx.Commit())
	require.NotPanics(func() { tx.Rollback() })

	view := s.View(context.Background())
	defer view.Rollback()
	v, err := view.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte("v"), v)
}

func TestIterateOrdersByKeyAndRespectsPrefix(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Set([]byte("p/3"), []byte("c")))
	require.NoError(tx.Set([]byte("p/1"), []byte("a")))
	require.NoError(tx.Set([]byte("p/2"), []byte("b")))
	require.NoError(tx.Set([]byte("q/1"), []byte("other")))

	var got []string
	require.NoError(tx.Iterate([]byte("p/"), func(_, value []byte) (bool, error) {
		got = append(got, string(value))
		return true, nil
	}))
	require.Equal([]string{"a", "b", "c"}, got)

	n, err := tx.Count([]byte("p/"))
	require.NoError(err)
	require.EqualValues(3, n)
	tx.Rollback()
}

func TestIterateStopsEarly(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	tx := s.Begin(context.Background())
	require.NoError(tx.Set([]byte("p/1"), []byte("a")))
	require.NoError(tx.Set([]byte("p/2"), []byte("b")))
	require.NoError(tx.Set([]byte("p/3"), []byte("c")))

	var seen int
	require.NoError(tx.Iterate([]byte("p/"), func(_, _ []byte) (bool, error) {
		seen++
		return false, nil
	}))
	require.Equal(1, seen)
	tx.Rollback()
}

func TestNestedIterateMergesOverlayWithParent(t *testing.T) {
	require := require.New(t)
	s := openTestStore(t)

	parent := s.Begin(context.Background())
	require.NoError(parent.Set([]byte("p/1"), []byte("a")))
	require.NoError(parent.Set([]byte("p/2"), []byte("b")))

	child := parent.Nested()
	require.NoError(child.Set([]byte("p/3"), []byte("c")))
	require.NoError(child.Delete([]byte("p/1")))

	var got []string
	require.NoError(child.Iterate([]byte("p/"), func(_, value []byte) (bool, error) {
		got = append(got, string(value))
		return true, nil
	}))
	require.Equal([]string{"b", "c"}, got)
	child.Rollback()
	require.NoError(parent.Commit())
}

func TestViewPanicsOnWrite(t *testing.T) {
	s := openTestStore(t)
	view := s.View(context.Background())
	defer view.Rollback()
	require.Panics(t, func() { _ = view.Set([]byte("k"), []byte("v")) })
}
