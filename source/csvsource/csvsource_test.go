package csvsource

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/KingdomFirst/Bulldozer-sub001/importer/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, content []byte) string {
	path := filepath.Join(t.TempDir(), "person.csv")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	return path
}

func readAll(t *testing.T, s *Source) []db.Record {
	var out []db.Record
	for {
		rec, err := s.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		name      string
		content   []byte
		encoding  string
		wantTotal int
		wantLines []int
		wantNames []string
	}{
		{
			name:      "utf-8 with byte order mark and quoted new line",
			content:   []byte("\xef\xbb\xbfPersonId,FirstName\n1,\"Ann\nMarie\"\n2\n"),
			wantTotal: 2,
			wantLines: []int{2, 4},
			wantNames: []string{"Ann\nMarie", ""},
		},
		{
			name:      "windows-1252",
			content:   []byte("PersonId,FirstName\n1,Ren\xe9\n"),
			encoding:  "windows-1252",
			wantTotal: 1,
			wantLines: []int{2},
			wantNames: []string{"René"},
		},
		{
			name:      "header only",
			content:   []byte("PersonId,FirstName\n"),
			wantTotal: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(writeFile(t, tt.content), tt.encoding, "personid")
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, s.Close())
			}()
			assert.Equal(t, tt.wantTotal, s.Total())
			records := readAll(t, s)
			require.Len(t, records, len(tt.wantLines))
			for idx, rec := range records {
				assert.Equal(t, tt.wantLines[idx], rec.Line)
				assert.Equal(t, tt.wantNames[idx], rec.Get("FirstName"))
			}
		})
	}
}

func TestOpen_missingColumns(t *testing.T) {
	_, err := Open(writeFile(t, []byte("FirstName,LastName\nAnn,Lee\n")), "", "PersonId", "LastName")
	assert.ErrorIs(t, err, ErrMissingColumns)
	assert.ErrorContains(t, err, "PersonId")
}

func TestOpen_unknownEncoding(t *testing.T) {
	_, err := Open(writeFile(t, []byte("PersonId\n1\n")), "klingon", "PersonId")
	assert.ErrorContains(t, err, "unknown encoding")
}
