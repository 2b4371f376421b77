package stream

import (
	"io"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
)

// Source yields source rows in order. Next returns io.EOF after the last row.
type Source interface {
	Next() (db.Record, error)
}

// Sized is implemented by sources that know their row count up front, it enables percentages.
type Sized interface {
	Total() int
}

// SliceSource serves records held in memory
type SliceSource struct {
	records []db.Record
	pos     int
}

// NewSliceSource builds a source from a header and rows, numbering lines as a CSV file would
func NewSliceSource(header []string, rows ...[]string) *SliceSource {
	h := db.NewHeader(header)
	records := make([]db.Record, len(rows))
	for idx, row := range rows {
		records[idx] = db.Record{Line: idx + 2, Header: h, Values: row}
	}
	return &SliceSource{records: records}
}

func (s *SliceSource) Next() (db.Record, error) {
	if s.pos >= len(s.records) {
		return db.Record{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *SliceSource) Total() int {
	return len(s.records)
}
