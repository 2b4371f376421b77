package kinds

import (
	"strconv"
	"strings"
	"time"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/shopspring/decimal"
)

var dateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	time.RFC3339,
}

var timeLayouts = []string{"15:04", "15:04:05", "3:04 PM", "3:04PM"}

// fields parses typed values out of one record. The first failure is kept in err and
// reported against the unit's natural id; blank values become nil.
type fields struct {
	rec db.Record
	id  string
	err error
}

func newFields(rec db.Record, naturalID string) *fields {
	return &fields{rec: rec, id: naturalID}
}

func (f *fields) fail(column string) interface{} {
	if f.err == nil {
		f.err = db.InvalidValue(column, f.id)
	}
	return nil
}

func (f *fields) text(column string) interface{} {
	v := f.rec.Get(column)
	if v == "" {
		return nil
	}
	return v
}

// requiredText fails on blank values
func (f *fields) requiredText(column string) interface{} {
	v := f.rec.Get(column)
	if v == "" {
		return f.fail(column)
	}
	return v
}

func (f *fields) integer(column string) interface{} {
	v := f.rec.Get(column)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return f.fail(column)
	}
	return n
}

func (f *fields) boolean(column string) interface{} {
	switch strings.ToLower(f.rec.Get(column)) {
	case "":
		return nil
	case "1", "y", "yes", "t", "true":
		return true
	case "0", "n", "no", "f", "false":
		return false
	default:
		return f.fail(column)
	}
}

func (f *fields) date(column string) interface{} {
	v := f.rec.Get(column)
	if v == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return f.fail(column)
}

// timeOfDay normalizes a clock time to HH:MM:SS
func (f *fields) timeOfDay(column string) interface{} {
	v := f.rec.Get(column)
	if v == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(v)); err == nil {
			return t.Format("15:04:05")
		}
	}
	return f.fail(column)
}

func (f *fields) money(column string) interface{} {
	v := strings.NewReplacer("$", "", ",", "").Replace(f.rec.Get(column))
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return f.fail(column)
	}
	return d.Round(2)
}

// enum maps a source value to its stored form. Matching ignores case; blank yields def.
func (f *fields) enum(column string, values map[string]string, def interface{}) interface{} {
	v := strings.ToLower(f.rec.Get(column))
	if v == "" {
		return def
	}
	if stored, ok := values[v]; ok {
		return stored
	}
	return f.fail(column)
}
