package recordfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFile(t *testing.T) *File {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "records.txt"))
}

func TestMissingFileReadsAsEmpty(t *testing.T) {
	f := newTestFile(t)

	records, err := f.Records()
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = f.FindLine("12345")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAppendAndFind(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append([]string{"11111", "first"}))
	require.NoError(t, f.Append([]string{"22222", "second"}))
	require.NoError(t, f.Append([]string{"33333", "third"}))

	idx, err := f.FindLine("22222")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	fields, idx, err := f.Record("33333")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []string{"33333", "third"}, fields)

	_, err = f.FindLine("99999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindMatchesWholeIdentifierField(t *testing.T) {
	f := newTestFile(t)

	// A field later in the line carrying the id must not match.
	require.NoError(t, f.Append([]string{"11111", "22222"}))
	require.NoError(t, f.Append([]string{"22222", "owner"}))

	idx, err := f.FindLine("22222")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	// A truncated, extended or empty id is not the identifier of any record.
	for _, id := range []string{"1", "111", "2222", "111111", ""} {
		_, err := f.FindLine(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestReplaceLine(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append([]string{"11111", "old"}))
	require.NoError(t, f.Append([]string{"22222", "keep"}))

	require.NoError(t, f.ReplaceLine(0, []string{"11111", "new"}))

	records, err := f.Records()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"11111", "new"}, {"22222", "keep"}}, records)

	assert.Error(t, f.ReplaceLine(2, []string{"x"}))
	assert.Error(t, f.ReplaceLine(-1, []string{"x"}))
}

func TestDeleteLine(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append([]string{"11111", "a"}))
	require.NoError(t, f.Append([]string{"22222", "b"}))
	require.NoError(t, f.Append([]string{"33333", "c"}))

	require.NoError(t, f.DeleteLine(1))

	records, err := f.Records()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"11111", "a"}, {"33333", "c"}}, records)

	// The later record moved up a line.
	idx, err := f.FindLine("33333")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	assert.Error(t, f.DeleteLine(5))
}

func TestTrailingDelimiter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.txt")
	f := NewTrailing(path)

	require.NoError(t, f.Append([]string{"11111", "name", "savings"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "11111,name,savings,\n", string(data))

	// The trailing delimiter must not show up as an extra empty field.
	records, err := f.Records()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"11111", "name", "savings"}}, records)
}

func TestWriteAllLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "records.txt"))

	require.NoError(t, f.WriteAll([][]string{{"11111", "a"}, {"22222", "b"}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "records.txt", entries[0].Name())
}

func TestClear(t *testing.T) {
	f := newTestFile(t)

	require.NoError(t, f.Append([]string{"11111", "a"}))
	require.NoError(t, f.Clear())

	records, err := f.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBlankAndCRLFLinesSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.txt")
	require.NoError(t, os.WriteFile(path, []byte("11111,a\r\n\n22222,b\n"), 0644))

	records, err := New(path).Records()
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"11111", "a"}, {"22222", "b"}}, records)
}
