package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/datacheck/internal/check"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestDiffFiles(t *testing.T) {
	diff := DiffFiles(
		[]string{"/d/a.csv", "/d/b.csv"},
		[]string{"/d/a.csv", "/d/c.csv"},
	)

	assert.False(t, diff.Matches())
	assert.Equal(t, []string{"/d/a.csv"}, diff.ExpectedAndFound)
	assert.Equal(t, []string{"/d/c.csv"}, diff.FoundNotExpected)
	assert.Equal(t, []string{"/d/b.csv"}, diff.ExpectedNotFound)
	assert.Equal(t,
		"CSV files expected and found: [/d/a.csv]\nCSV files found but not expected: [/d/c.csv]\nCSV files expected but not found: [/d/b.csv]",
		diff.String())
}

func TestDiffFiles_Equal(t *testing.T) {
	diff := DiffFiles([]string{"/d/b.csv", "/d/a.csv"}, []string{"/d/a.csv", "/d/b.csv"})
	assert.True(t, diff.Matches())
	assert.Equal(t, []string{"/d/a.csv", "/d/b.csv"}, diff.ExpectedAndFound)
}

func TestExpectedCSVFiles_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.csv", "1\n")
	writeFile(t, dir, "c.csv", "1\n")
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.csv"), 0o755))

	dc := NewExpectedCSVFiles("layout", "a.csv", filepath.Join(dir, "b.csv"))

	err := dc.Run(context.Background(), check.Terminate(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, check.ErrCheckFailed)

	v, ok := check.ViolationOf(err)
	require.True(t, ok)
	assert.Equal(t, check.KindDirectory, v.Kind)
	assert.Contains(t, v.Message, "expected and found: ["+filepath.Join(dir, "a.csv")+"]")
	assert.Contains(t, v.Message, "found but not expected: ["+filepath.Join(dir, "c.csv")+"]")
	assert.Contains(t, v.Message, "expected but not found: ["+filepath.Join(dir, "b.csv")+"]")

	ok2 := NewExpectedCSVFiles("layout", "a.csv", "c.csv")
	assert.NoError(t, ok2.Run(context.Background(), check.Terminate(), dir))
}

func TestExpectedCSVFiles_MissingDirectory(t *testing.T) {
	dc := NewExpectedCSVFiles("layout", "a.csv")
	err := dc.Run(context.Background(), check.Collect(0), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, check.ErrCheckFailed)
}

func personColumns(store check.Store) []check.Column {
	return []check.Column{
		check.Long().WithConsecutive(1, 1).SaveRefTo(check.NewRef[int64](store, "person.id")),
		check.String(),
		check.Email(),
	}
}

func TestCSVFile_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "person.csv",
		"\xEF\xBB\xBFid|name|email\n1|Ana|ana@example.com\n\n2|Bo|bo@example.org\r\n")

	store := check.NewMemoryStore()
	f := NewCSVFile("person", path, personColumns(store), WithHeader("id", "name", "email"))

	stats, err := f.Run(context.Background(), check.Terminate())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Rows)
	assert.Equal(t, int64(4), stats.Lines)
	assert.Greater(t, stats.Bytes, int64(0))

	n, err := store.Len(context.Background(), "person.id")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCSVFile_TerminateStopsAtFirstViolation(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "person.csv", "1|Ana|ana@example.com\n3|Bo|not-an-email\n4|Cy|cy@example.com\n")

	f := NewCSVFile("person", path, personColumns(check.NewMemoryStore()))
	_, err := f.Run(context.Background(), check.Terminate())
	require.Error(t, err)

	v, ok := check.ViolationOf(err)
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Line)
	assert.Equal(t, check.CodeConsecutive, v.Code)
	assert.Equal(t, []string{"3", "Bo", "not-an-email"}, v.Row)
	assert.Contains(t, err.Error(), path)
}

func TestCSVFile_CollectKeepsGoing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "person.csv", "1|Ana|ana@example.com\nx|Bo\n2|Bo|bad\n")

	p := check.Collect(0)
	f := NewCSVFile("person", path, personColumns(check.NewMemoryStore()))
	stats, err := f.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Rows)

	got := p.Violations()
	require.Len(t, got, 2)
	assert.Equal(t, check.KindLine, got[0].Kind)
	assert.Equal(t, "Expected 3 columns, found 2", got[0].Message)
	assert.Equal(t, check.CodePattern, got[1].Code)
	assert.Equal(t, int64(3), got[1].Line)
}

func TestCSVFile_HeaderMismatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "person.csv", "id|name\n1|Ana|ana@example.com\n")

	p := check.Collect(0)
	f := NewCSVFile("person", path, personColumns(check.NewMemoryStore()), WithHeader("id", "name", "email"))
	_, err := f.Run(context.Background(), p)
	require.NoError(t, err)

	got := p.Violations()
	require.Len(t, got, 1)
	assert.Equal(t, check.CodeHeader, got[0].Code)
	assert.Equal(t, int64(1), got[0].Line)
}

func TestCSVFile_Empty(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.csv", "")

	_, err := NewCSVFile("empty", path, []check.Column{check.String()}).Run(context.Background(), check.Terminate())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File contains no data rows")

	_, err = NewCSVFile("empty", path, []check.Column{check.String()}, AllowEmpty()).Run(context.Background(), check.Terminate())
	assert.NoError(t, err)
}

func TestCSVFile_BlankFieldsAreChecked(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "knows.csv", "1|2\n|\n \n\n3|4\n")

	p := check.Collect(0)
	f := NewCSVFile("knows", path, []check.Column{check.Long(), check.Long()})
	stats, err := f.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Rows)
	assert.Equal(t, int64(5), stats.Lines)

	got := p.Violations()
	require.Len(t, got, 3)
	assert.Equal(t, check.CodeParse, got[0].Code)
	assert.Equal(t, int64(2), got[0].Line)
	assert.Equal(t, check.CodeParse, got[1].Code)
	assert.Equal(t, int64(2), got[1].Line)
	assert.Equal(t, check.CodeLine, got[2].Code)
	assert.Equal(t, int64(3), got[2].Line)
	assert.Equal(t, "Expected 2 columns, found 1", got[2].Message)
}

func TestCSVFile_InvalidUTF8(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "names.csv", "1|Ana\n2|B\xffo\n")

	p := check.Collect(0)
	f := NewCSVFile("names", path, []check.Column{check.Long(), check.String()})
	stats, err := f.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.InvalidUTF8)

	got := p.Violations()
	require.Len(t, got, 1)
	assert.Equal(t, check.KindFile, got[0].Kind)
	assert.Equal(t, "File contains 1 invalid UTF-8 sequences", got[0].Message)

	_, err = f.Run(context.Background(), check.Terminate())
	assert.ErrorIs(t, err, check.ErrCheckFailed)
}

func TestCSVFile_Quoted(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tags.csv", "1,\"Smith, John\"\n2,plain\n")

	p := check.Collect(0)
	f := NewCSVFile("tags", path, []check.Column{check.Int(), check.String()}, WithSeparator(','), Quoted())
	stats, err := f.Run(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Rows)
	assert.Zero(t, p.Total())
}

func TestCSVFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	content := ""
	for i := 0; i < 250; i++ {
		content += "a\n"
	}
	path := writeFile(t, dir, "big.csv", content)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCSVFile("big", path, []check.Column{check.String()}).Run(ctx, check.Terminate())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCSVFile_MissingFile(t *testing.T) {
	_, err := NewCSVFile("gone", filepath.Join(t.TempDir(), "gone.csv"), nil).Run(context.Background(), check.Terminate())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
