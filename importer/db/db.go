package db

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// IDColumn is the surrogate key generated by the target store
	IDColumn = "id"
	// KeyColumn holds the identity key (prefix^naturalId) of imported rows
	KeyColumn = "foreign_key"
	// AuditTable receives one row per imported entity unless auditing is disabled
	AuditTable = "import_audits"
)

var (
	ErrStoreUnavailable = errors.New("target store unavailable")
	ErrMissingPrefix    = errors.New("import instance prefix is required")
	ErrInvalidPrefix    = errors.New("import instance prefix must not contain the key separator")
	ErrVerifyFailed     = errors.New("bulk write verification failed")
)

// Column describes a target column. ValueType is a postgres type OID from github.com/jackc/pgtype.
type Column struct {
	Name      string
	ValueType uint32
}

// ChildSpec describes rows owned by an entity, written after the entity so they can carry its id.
type ChildSpec struct {
	Table        string
	ParentColumn string
	Columns      []Column
}

// TableSpec describes the target table of an entity kind.
// Every table has an IDColumn and a KeyColumn in addition to Columns.
// When Alias is set, lookups report the id of the first alias row as Reference.AliasID.
type TableSpec struct {
	Table    string
	Columns  []Column
	Alias    *ChildSpec
	Children []*ChildSpec
}

// ChildTables returns the alias table (if any) followed by the other child tables
func (s *TableSpec) ChildTables() []*ChildSpec {
	var out []*ChildSpec
	if s.Alias != nil {
		out = append(out, s.Alias)
	}
	return append(out, s.Children...)
}

func (s *TableSpec) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for idx, col := range s.Columns {
		out[idx] = col.Name
	}
	return out
}

func (s *TableSpec) HasColumn(name string) bool {
	for _, col := range s.Columns {
		if col.Name == name {
			return true
		}
	}
	return false
}

func (c *ChildSpec) ColumnNames() []string {
	out := make([]string, 0, len(c.Columns)+1)
	out = append(out, c.ParentColumn)
	for _, col := range c.Columns {
		out = append(out, col.Name)
	}
	return out
}

// Row holds column values keyed by column name. Values are Go natives:
// nil, string, int64, bool, time.Time or decimal.Decimal.
type Row map[string]interface{}

// Entity is one pending insert built from one source unit.
// Key is empty when the natural id was blank.
// ParentKey is set when a self reference could not be resolved yet and must be linked in a second pass.
type Entity struct {
	Key       string
	NaturalID string
	Values    Row
	Children  map[string][]Row
	ParentKey string
}

// HasChildren reports whether the entity carries any child row
func (e *Entity) HasChildren() bool {
	for _, rows := range e.Children {
		if len(rows) > 0 {
			return true
		}
	}
	return false
}

func (e *Entity) String() string {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("entity %s\n", e.Key))
	names := make([]string, 0, len(e.Values))
	for name := range e.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf.WriteString(fmt.Sprintf("    %s: %v\n", name, e.Values[name]))
	}
	for table, rows := range e.Children {
		buf.WriteString(fmt.Sprintf("    %s: %d rows\n", table, len(rows)))
	}
	return buf.String()
}

// Reference is what dependents need to point at an imported entity
type Reference struct {
	ID      int64
	AliasID int64
}

// Link sets the self reference of row ID to ParentID
type Link struct {
	ID       int64
	ParentID int64
}

// RowError excludes one source unit from the import. It is logged under Category and never halts a run.
type RowError struct {
	Category string
	Message  string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// MissingDependency reports a required reference that was never imported
func MissingDependency(column string, naturalID string) *RowError {
	return &RowError{Category: "missing " + column, Message: strings.TrimSpace(naturalID)}
}

// InvalidValue reports an unparsable or out of range value of the unit identified by naturalID
func InvalidValue(column string, naturalID string) *RowError {
	return &RowError{Category: "invalid " + column, Message: naturalID}
}

// Duplicate reports a value that must be unique within a run
func Duplicate(column string, value string) *RowError {
	return &RowError{Category: "duplicate " + column, Message: value}
}
