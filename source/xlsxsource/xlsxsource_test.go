package xlsxsource

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows ...[]interface{}) string {
	f := excelize.NewFile()
	for idx, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, idx+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "person.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestOpen(t *testing.T) {
	path := writeWorkbook(t,
		[]interface{}{"PersonId", "FirstName", "LastName"},
		[]interface{}{1, "Ann", "Lee"},
		[]interface{}{"P2", " Bo "},
	)
	s, err := Open(path, "personid")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, s.Close())
	}()
	assert.Equal(t, 2, s.Total())
	assert.Equal(t, []string{"PersonId", "FirstName", "LastName"}, s.Header().Names())

	rec, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, "1", rec.Get("PersonId"))
	assert.Equal(t, "Lee", rec.Get("LastName"))

	rec, err = s.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Line)
	assert.Equal(t, "Bo", rec.Get("FirstName"))
	assert.Equal(t, "", rec.Get("LastName"))

	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

func TestOpen_missingColumns(t *testing.T) {
	path := writeWorkbook(t, []interface{}{"FirstName"}, []interface{}{"Ann"})
	_, err := Open(path, "PersonId")
	assert.ErrorIs(t, err, ErrMissingColumns)
}
