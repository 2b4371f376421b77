package xlsxsource

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheet        = errors.New("workbook has no sheets")
	ErrMissingColumns = errors.New("source is missing required columns")
)

// Source streams the rows of the first sheet of a workbook; the first row is the header
type Source struct {
	path   string
	file   *excelize.File
	rows   *excelize.Rows
	header *db.Header
	line   int
	total  int
}

var _ stream.Source = (*Source)(nil)
var _ stream.Sized = (*Source)(nil)

func Open(path string, required ...string) (*Source, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	s, err := newSource(path, file, required)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return s, nil
}

func newSource(path string, file *excelize.File, required []string) (*Source, error) {
	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, path)
	}
	sheet := sheets[0]

	total, err := countRows(file, sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	rows, err := file.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("could not read %s: %w", path, err)
	}
	s := &Source{path: path, file: file, rows: rows, total: total}
	var names []string
	if rows.Next() {
		if names, err = rows.Columns(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("could not read header of %s: %w", path, err)
		}
		s.line = 1
	}
	s.header = db.NewHeader(names)
	if missing := s.header.Missing(required...); len(missing) > 0 {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: %s: %s", ErrMissingColumns, path, strings.Join(missing, ", "))
	}
	logrus.WithFields(logrus.Fields{"path": path, "sheet": sheet, "rows": total, "columns": len(names)}).Debugln("opened xlsx source")
	return s, nil
}

func countRows(file *excelize.File, sheet string) (int, error) {
	rows, err := file.Rows(sheet)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = rows.Close()
	}()
	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Error(); err != nil {
		return 0, err
	}
	if n > 0 {
		// header
		n--
	}
	return n, nil
}

func (s *Source) Next() (db.Record, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return db.Record{}, fmt.Errorf("could not read %s: %w", s.path, err)
		}
		return db.Record{}, io.EOF
	}
	values, err := s.rows.Columns()
	if err != nil {
		return db.Record{}, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	s.line++
	return db.Record{Line: s.line, Header: s.header, Values: values}, nil
}

func (s *Source) Total() int {
	return s.total
}

func (s *Source) Header() *db.Header {
	return s.header
}

func (s *Source) Close() error {
	return errors.Join(s.rows.Close(), s.file.Close())
}
