package csvsource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/KingdomFirst/Bulldozer-sub001/importer/stream"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var ErrMissingColumns = errors.New("source is missing required columns")

// Source streams the rows of a CSV file. The first record is the header.
// Rows may have fewer or more fields than the header.
type Source struct {
	path   string
	file   *os.File
	r      *csv.Reader
	header *db.Header
	total  int
}

var _ stream.Source = (*Source)(nil)
var _ stream.Sized = (*Source)(nil)

// Open counts the rows of the file, then reopens it for streaming. encoding is a WHATWG label
// such as "windows-1252"; blank means UTF-8. A byte order mark overrides the encoding.
func Open(path string, encoding string, required ...string) (*Source, error) {
	total, err := countRows(path, encoding)
	if err != nil {
		return nil, err
	}
	file, r, err := open(path, encoding)
	if err != nil {
		return nil, err
	}
	s := &Source{path: path, file: file, r: r, total: total}
	names, err := r.Read()
	if err != nil && err != io.EOF {
		_ = file.Close()
		return nil, fmt.Errorf("could not read header of %s: %w", path, err)
	}
	s.header = db.NewHeader(names)
	if missing := s.header.Missing(required...); len(missing) > 0 {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s: %s", ErrMissingColumns, path, strings.Join(missing, ", "))
	}
	logrus.WithFields(logrus.Fields{"path": path, "rows": total, "columns": len(names)}).Debugln("opened csv source")
	return s, nil
}

func open(path string, encoding string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	decoder := unicode.UTF8.NewDecoder()
	if encoding != "" {
		enc, err := htmlindex.Get(encoding)
		if err != nil {
			_ = file.Close()
			return nil, nil, fmt.Errorf("unknown encoding %q: %w", encoding, err)
		}
		decoder = enc.NewDecoder()
	}
	r := csv.NewReader(transform.NewReader(file, unicode.BOMOverride(decoder)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return file, r, nil
}

// countRows parses the whole file since quoted fields may contain new lines
func countRows(path string, encoding string) (int, error) {
	file, r, err := open(path, encoding)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = file.Close()
	}()
	r.ReuseRecord = true
	n := 0
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return 0, fmt.Errorf("could not read %s: %w", path, err)
		}
		n++
	}
	if n > 0 {
		// header
		n--
	}
	return n, nil
}

func (s *Source) Next() (db.Record, error) {
	values, err := s.r.Read()
	if err == io.EOF {
		return db.Record{}, io.EOF
	} else if err != nil {
		return db.Record{}, fmt.Errorf("could not read %s: %w", s.path, err)
	}
	line, _ := s.r.FieldPos(0)
	return db.Record{Line: line, Header: s.header, Values: values}, nil
}

func (s *Source) Total() int {
	return s.total
}

func (s *Source) Header() *db.Header {
	return s.header
}

func (s *Source) Close() error {
	return s.file.Close()
}
