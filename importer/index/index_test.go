package index

import (
	"context"
	"errors"
	"testing"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookuper struct {
	refs   map[string]db.Reference
	err    error
	calls  int
	prefix string
}

func (s *stubLookuper) Lookup(_ context.Context, _ *db.TableSpec, prefix string) (map[string]db.Reference, error) {
	s.calls++
	s.prefix = prefix
	return s.refs, s.err
}

func TestLoad(t *testing.T) {
	store := &stubLookuper{refs: map[string]db.Reference{"F1^1": {ID: 10}, "F1^2": {ID: 11}}}
	idx, err := Load(context.Background(), store, &db.TableSpec{Table: "people"}, "F1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.calls)
	assert.Equal(t, "F1", store.prefix)
	assert.Equal(t, 2, idx.Len())
	assert.True(t, idx.Contains("F1^1"))
	assert.False(t, idx.Contains("F1^3"))

	idx.Insert("F1^3", 12)
	id, ok := idx.ID("F1^3")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)
}

func TestLoad_StoreUnavailable(t *testing.T) {
	store := &stubLookuper{err: errors.New("connection refused")}
	_, err := Load(context.Background(), store, &db.TableSpec{Table: "people"}, "F1")
	assert.ErrorIs(t, err, db.ErrStoreUnavailable)
	assert.ErrorContains(t, err, "connection refused")
}

func TestDependencyMap(t *testing.T) {
	m := NewDependencyMap(map[string]db.Reference{"F1^P1": {ID: 1, AliasID: 100}})

	ref, ok := m.Resolve("F1^P1")
	assert.True(t, ok)
	assert.Equal(t, db.Reference{ID: 1, AliasID: 100}, ref)

	_, ok = m.Resolve("F1^P7")
	assert.False(t, ok)
	_, ok = m.Resolve("")
	assert.False(t, ok)

	m.RegisterAll(map[string]db.Reference{"F1^P7": {ID: 7, AliasID: 700}})
	ref, ok = m.Resolve("F1^P7")
	assert.True(t, ok)
	assert.Equal(t, int64(700), ref.AliasID)
	assert.Equal(t, 2, m.Len())
}

func TestDependencies(t *testing.T) {
	deps := NewDependencies()
	store := &stubLookuper{refs: map[string]db.Reference{"F1^C1": {ID: 3}}}
	require.NoError(t, deps.Load(context.Background(), store, "campus", &db.TableSpec{Table: "campuses"}, "F1"))

	assert.True(t, deps.Loaded("campus"))
	_, ok := deps.For("campus").Resolve("F1^C1")
	assert.True(t, ok)

	assert.False(t, deps.Loaded("person"))
	assert.Equal(t, 0, deps.For("person").Len())
	assert.False(t, deps.Loaded("person"))

	store.err = errors.New("boom")
	err := deps.Load(context.Background(), store, "person", &db.TableSpec{Table: "people"}, "F1")
	assert.ErrorIs(t, err, db.ErrStoreUnavailable)
}
