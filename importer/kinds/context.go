package kinds

import (
	"fmt"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/index"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/key"
)

// Context is what a transform may read: the run's key resolver and dependency maps.
// Transforms must not mutate it, workers of one chunk share it.
type Context struct {
	Resolver key.Resolver
	Deps     *index.Dependencies
}

func NewContext(resolver key.Resolver, deps *index.Dependencies) *Context {
	return &Context{Resolver: resolver, Deps: deps}
}

// Lookup resolves the natural id of an entity of kind
func (c *Context) Lookup(kind string, naturalID string) (db.Reference, bool) {
	k, ok := c.Resolver.Resolve(naturalID)
	if !ok {
		return db.Reference{}, false
	}
	return c.Deps.For(kind).Resolve(k)
}

// Required resolves the reference held in column, excluding the unit when it cannot be resolved.
// The missing natural id is what gets logged, or the line number when the column is blank.
func (c *Context) Required(kind string, column string, rec db.Record) (db.Reference, error) {
	naturalID := rec.Get(column)
	ref, ok := c.Lookup(kind, naturalID)
	if !ok {
		if naturalID == "" {
			return db.Reference{}, db.MissingDependency(column, fmt.Sprintf("line %d", rec.Line))
		}
		return db.Reference{}, db.MissingDependency(column, naturalID)
	}
	return ref, nil
}

// RequiredAlias is Required for references stored by alias id. An entity without an alias is missing.
func (c *Context) RequiredAlias(kind string, column string, rec db.Record) (int64, error) {
	ref, err := c.Required(kind, column, rec)
	if err != nil {
		return 0, err
	}
	if ref.AliasID == 0 {
		return 0, db.MissingDependency(column, rec.Get(column))
	}
	return ref.AliasID, nil
}

// Optional resolves the reference held in column; absent references leave the field unset
func (c *Context) Optional(kind string, column string, rec db.Record) (db.Reference, bool) {
	return c.Lookup(kind, rec.Get(column))
}

// OptionalID is Optional returning the id or nil, ready to be stored in a db.Row
func (c *Context) OptionalID(kind string, column string, rec db.Record) interface{} {
	if ref, ok := c.Optional(kind, column, rec); ok {
		return ref.ID
	}
	return nil
}

// OptionalAlias is OptionalID returning the alias id
func (c *Context) OptionalAlias(kind string, column string, rec db.Record) interface{} {
	if ref, ok := c.Optional(kind, column, rec); ok && ref.AliasID != 0 {
		return ref.AliasID
	}
	return nil
}

// Parent resolves a self reference of kind. When the parent is not known yet the returned
// key must be linked in the second pass. A blank column means no parent.
func (c *Context) Parent(kind string, column string, rec db.Record) (id interface{}, deferredKey string) {
	k, ok := c.Resolver.Resolve(rec.Get(column))
	if !ok {
		return nil, ""
	}
	if ref, found := c.Deps.For(kind).Resolve(k); found {
		return ref.ID, ""
	}
	return nil, k
}
