package index

import (
	"context"
	"fmt"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/sirupsen/logrus"
)

// Lookuper is the part of the target store needed to load indexes
type Lookuper interface {
	// Lookup returns every row of the table whose identity key was produced by prefix
	Lookup(ctx context.Context, spec *db.TableSpec, prefix string) (map[string]db.Reference, error)
}

// Index holds the identity keys already present in the target for one entity kind.
// It is loaded once per run and appended to after each committed batch.
type Index struct {
	ids map[string]int64
}

func NewIndex() *Index {
	return &Index{ids: make(map[string]int64)}
}

// FromReferences builds an index from a lookup result
func FromReferences(refs map[string]db.Reference) *Index {
	i := &Index{ids: make(map[string]int64, len(refs))}
	for k, ref := range refs {
		i.ids[k] = ref.ID
	}
	return i
}

// Load queries the store once for all keys carrying prefix
func Load(ctx context.Context, store Lookuper, spec *db.TableSpec, prefix string) (*Index, error) {
	refs, err := store.Lookup(ctx, spec, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: load index for %s: %w", db.ErrStoreUnavailable, spec.Table, err)
	}
	logrus.WithFields(logrus.Fields{"table": spec.Table, "existing": len(refs)}).Debugln("loaded existing-record index")
	return FromReferences(refs), nil
}

func (i *Index) Contains(key string) bool {
	_, ok := i.ids[key]
	return ok
}

func (i *Index) ID(key string) (int64, bool) {
	id, ok := i.ids[key]
	return id, ok
}

func (i *Index) Insert(key string, id int64) {
	i.ids[key] = id
}

func (i *Index) Len() int {
	return len(i.ids)
}
