package index

import (
	"context"
	"fmt"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/sirupsen/logrus"
)

// DependencyMap resolves identity keys of one entity kind to the references dependents store
type DependencyMap struct {
	refs map[string]db.Reference
}

func NewDependencyMap(refs map[string]db.Reference) *DependencyMap {
	m := &DependencyMap{refs: make(map[string]db.Reference, len(refs))}
	m.RegisterAll(refs)
	return m
}

// Resolve never fails, an unknown or blank key is reported as absent
func (m *DependencyMap) Resolve(key string) (db.Reference, bool) {
	if key == "" {
		return db.Reference{}, false
	}
	ref, ok := m.refs[key]
	return ref, ok
}

// RegisterAll adds references of newly committed entities
func (m *DependencyMap) RegisterAll(refs map[string]db.Reference) {
	for k, ref := range refs {
		m.refs[k] = ref
	}
}

func (m *DependencyMap) Len() int {
	return len(m.refs)
}

// Dependencies is the run-scoped set of dependency maps, one per entity kind.
// Transforms only read from it, so it can be shared by the workers of one chunk.
type Dependencies struct {
	maps map[string]*DependencyMap
}

func NewDependencies() *Dependencies {
	return &Dependencies{maps: make(map[string]*DependencyMap)}
}

// Load populates the map of kind with one store lookup
func (d *Dependencies) Load(ctx context.Context, store Lookuper, kind string, spec *db.TableSpec, prefix string) error {
	refs, err := store.Lookup(ctx, spec, prefix)
	if err != nil {
		return fmt.Errorf("%w: load %s dependencies: %w", db.ErrStoreUnavailable, kind, err)
	}
	d.Set(kind, NewDependencyMap(refs))
	logrus.WithFields(logrus.Fields{"kind": kind, "references": len(refs)}).Debugln("loaded dependency map")
	return nil
}

func (d *Dependencies) Set(kind string, m *DependencyMap) {
	d.maps[kind] = m
}

// For returns the map of kind. A kind that was never loaded resolves nothing,
// and the returned map is detached from d.
func (d *Dependencies) For(kind string) *DependencyMap {
	m, ok := d.maps[kind]
	if !ok {
		return NewDependencyMap(nil)
	}
	return m
}

func (d *Dependencies) Loaded(kind string) bool {
	_, ok := d.maps[kind]
	return ok
}
