package db

import (
	"strings"
)

// Header maps source column names to positions. Lookups ignore case and surrounding space.
type Header struct {
	names []string
	index map[string]int
}

func NewHeader(names []string) *Header {
	h := &Header{names: make([]string, len(names)), index: make(map[string]int, len(names))}
	for idx, name := range names {
		name = strings.TrimSpace(name)
		h.names[idx] = name
		lower := strings.ToLower(name)
		// first occurrence wins
		if _, exists := h.index[lower]; !exists {
			h.index[lower] = idx
		}
	}
	return h
}

func (h *Header) Names() []string {
	return h.names
}

func (h *Header) Index(name string) (int, bool) {
	idx, ok := h.index[strings.ToLower(strings.TrimSpace(name))]
	return idx, ok
}

// Missing returns the required columns absent from the header
func (h *Header) Missing(required ...string) []string {
	var out []string
	for _, name := range required {
		if _, ok := h.Index(name); !ok {
			out = append(out, name)
		}
	}
	return out
}

// Record is one source row. Line is the 1-based position in the source including the header.
type Record struct {
	Line   int
	Header *Header
	Values []string
}

// Get returns the trimmed value of the named column, blank when the column is absent
func (r Record) Get(name string) string {
	if r.Header == nil {
		return ""
	}
	idx, ok := r.Header.Index(name)
	if !ok {
		return ""
	}
	return r.At(idx)
}

// At returns the trimmed value at a position, blank when out of range
func (r Record) At(idx int) string {
	if idx < 0 || idx >= len(r.Values) {
		return ""
	}
	return strings.TrimSpace(r.Values[idx])
}

func (r Record) IsBlank() bool {
	for _, v := range r.Values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
