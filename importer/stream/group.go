package stream

import (
	"errors"
	"io"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
)

// Group is one logical unit of work: a single row, or for grouped kinds every contiguous
// row sharing the leading natural id.
type Group struct {
	NaturalID string
	Records   []db.Record
}

// First returns the leading record of the group
func (g *Group) First() db.Record {
	return g.Records[0]
}

// Iterator yields whole groups. Next returns io.EOF when the source is exhausted.
type Iterator interface {
	Next() (*Group, error)
}

// Rows returns an iterator yielding each source row as its own group
func Rows(src Source, keyColumn string) Iterator {
	return &rowIterator{src: src, keyColumn: keyColumn}
}

type rowIterator struct {
	src       Source
	keyColumn string
}

func (it *rowIterator) Next() (*Group, error) {
	for {
		rec, err := it.src.Next()
		if err != nil {
			return nil, err
		}
		if rec.IsBlank() {
			continue
		}
		return &Group{NaturalID: rec.Get(it.keyColumn), Records: []db.Record{rec}}, nil
	}
}

// Grouper collects contiguous rows sharing the value of keyColumn into one group.
// Input order defines the groups: a natural id that reappears after a different one starts a
// new group, which the importer then rejects as a duplicate. Rows with a blank key are never
// grouped together.
type Grouper struct {
	src       Source
	keyColumn string
	peeked    *db.Record
	done      bool
}

func NewGrouper(src Source, keyColumn string) *Grouper {
	return &Grouper{src: src, keyColumn: keyColumn}
}

func (g *Grouper) pull() (*db.Record, error) {
	if g.peeked != nil {
		rec := g.peeked
		g.peeked = nil
		return rec, nil
	}
	if g.done {
		return nil, io.EOF
	}
	for {
		rec, err := g.src.Next()
		if errors.Is(err, io.EOF) {
			g.done = true
			return nil, io.EOF
		} else if err != nil {
			return nil, err
		}
		if rec.IsBlank() {
			continue
		}
		return &rec, nil
	}
}

func (g *Grouper) Next() (*Group, error) {
	first, err := g.pull()
	if err != nil {
		return nil, err
	}
	group := &Group{NaturalID: first.Get(g.keyColumn), Records: []db.Record{*first}}
	if group.NaturalID == "" {
		return group, nil
	}
	for {
		rec, err := g.pull()
		if errors.Is(err, io.EOF) {
			return group, nil
		} else if err != nil {
			return nil, err
		}
		if rec.Get(g.keyColumn) != group.NaturalID {
			g.peeked = rec
			return group, nil
		}
		group.Records = append(group.Records, *rec)
	}
}
