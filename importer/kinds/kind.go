package kinds

import (
	"errors"
	"fmt"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
)

var ErrUnknownKind = errors.New("unknown entity kind")

// TransformFunc builds the pending insert for one unit. A *db.RowError excludes the unit;
// any other error aborts the run.
type TransformFunc func(tc *Context, g *stream.Group) (*db.Entity, error)

// Kind is one entry of the dispatch table
type Kind struct {
	Name string
	// KeyColumn is the source column holding the natural id
	KeyColumn string
	// Grouped kinds read every contiguous row sharing KeyColumn as one unit
	Grouped bool
	Spec    *db.TableSpec
	// ParentColumn is a self reference resolved in the second pass when the parent is imported later
	ParentColumn string
	// ParentSource is the source column holding the parent natural id
	ParentSource string
	// Unique lists target columns whose values may appear only once per run
	Unique []string
	// Requires lists the kinds whose dependency maps Transform reads
	Requires  []string
	Transform TransformFunc
}

func (k *Kind) String() string {
	return k.Name
}

// Registry is the ordered dispatch table. Order is import order: a kind only requires kinds
// registered before it, or itself.
type Registry struct {
	kinds  []*Kind
	byName map[string]*Kind
}

func NewRegistry(kinds ...*Kind) (*Registry, error) {
	r := &Registry{byName: make(map[string]*Kind, len(kinds))}
	for _, k := range kinds {
		if _, exists := r.byName[k.Name]; exists {
			return nil, fmt.Errorf("kind %s registered twice", k.Name)
		}
		if k.Transform == nil || k.Spec == nil || k.KeyColumn == "" {
			return nil, fmt.Errorf("kind %s is incomplete", k.Name)
		}
		if k.ParentColumn != "" && !k.Spec.HasColumn(k.ParentColumn) {
			return nil, fmt.Errorf("kind %s: parent column %s is not a column of %s", k.Name, k.ParentColumn, k.Spec.Table)
		}
		for _, req := range k.Requires {
			if _, ok := r.byName[req]; !ok && req != k.Name {
				return nil, fmt.Errorf("kind %s requires %s which is not registered before it", k.Name, req)
			}
		}
		r.kinds = append(r.kinds, k)
		r.byName[k.Name] = k
	}
	return r, nil
}

func (r *Registry) Get(name string) (*Kind, error) {
	k, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, name)
	}
	return k, nil
}

func (r *Registry) All() []*Kind {
	return r.kinds
}

func (r *Registry) Names() []string {
	out := make([]string, len(r.kinds))
	for idx, k := range r.kinds {
		out[idx] = k.Name
	}
	return out
}

// Select returns the named kinds in import order; no names selects every kind
func (r *Registry) Select(names []string) ([]*Kind, error) {
	if len(names) == 0 {
		return r.kinds, nil
	}
	want := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := r.Get(name); err != nil {
			return nil, err
		}
		want[name] = true
	}
	var out []*Kind
	for _, k := range r.kinds {
		if want[k.Name] {
			out = append(out, k)
		}
	}
	return out, nil
}

// Specs returns the table of every kind, for schema setup
func (r *Registry) Specs() []*db.TableSpec {
	out := make([]*db.TableSpec, len(r.kinds))
	for idx, k := range r.kinds {
		out[idx] = k.Spec
	}
	return out
}

var defaultRegistry *Registry

func init() {
	r, err := NewRegistry(
		Campus,
		Person,
		Family,
		Phone,
		Note,
		UserLogin,
		Account,
		Batch,
		Transaction,
		Category,
		Location,
		Schedule,
		PrayerRequest,
		Communication,
		ConnectionRequest,
	)
	if err != nil {
		panic(err)
	}
	defaultRegistry = r
}

// Default returns the registry of every supported kind
func Default() *Registry {
	return defaultRegistry
}

// build returns the entity unless a field failed to parse
func build(f *fields, values db.Row) (*db.Entity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &db.Entity{Values: values}, nil
}

func column(name string, valueType uint32) db.Column {
	return db.Column{Name: name, ValueType: valueType}
}
