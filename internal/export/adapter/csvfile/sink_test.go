package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"verified-export/internal/export/domain/model"
	apperrors "verified-export/internal/shared/errors"
	"verified-export/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T, atomic bool) (*Sink, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSink(dir, atomic, logger.NewLoggerWithConfig("error", "text")), dir
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// listDir returns the names in dir, hidden temp files included.
func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSink_WritesHeaderAndRows(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		name := "direct"
		if atomic {
			name = "atomic"
		}
		t.Run(name, func(t *testing.T) {
			sink, dir := newTestSink(t, atomic)

			w, err := sink.Create("students")
			require.NoError(t, err)
			require.NoError(t, w.WriteHeader())
			require.NoError(t, w.Write(model.Row{RegistrationNo: "A1", Verified: true, VerifiedAt: "2024-01-01"}))
			require.NoError(t, w.Write(model.Row{RegistrationNo: "", Verified: true, VerifiedAt: ""}))
			require.NoError(t, w.Commit())
			require.NoError(t, w.Close())

			assert.Equal(t, filepath.Join(dir, "students.csv"), w.Path())
			assert.Equal(t, "Reg No.,verified,verified at\nA1,True,2024-01-01\n,True,\n", readFile(t, w.Path()))
			assert.Equal(t, []string{"students.csv"}, listDir(t, dir))
		})
	}
}

func TestSink_HeaderOnly(t *testing.T) {
	sink, _ := newTestSink(t, true)

	w, err := sink.Create("empty")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	assert.Equal(t, "Reg No.,verified,verified at\n", readFile(t, w.Path()))
}

func TestSink_QuotesAndUnicode(t *testing.T) {
	sink, _ := newTestSink(t, true)

	w, err := sink.Create("people")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(model.Row{RegistrationNo: `Smith, "J"`, Verified: true, VerifiedAt: "Zoë 王\nline"}))
	require.NoError(t, w.Commit())

	content := readFile(t, w.Path())
	assert.Equal(t, "Reg No.,verified,verified at\n\"Smith, \"\"J\"\"\",True,\"Zoë 王\nline\"\n", content)
	assert.False(t, strings.Contains(content, "\r"))
}

func TestSink_LeadingSpaceIsQuoted(t *testing.T) {
	sink, _ := newTestSink(t, false)

	w, err := sink.Create("people")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(model.Row{RegistrationNo: " A1", Verified: true, VerifiedAt: "2024-01-01 "}))
	require.NoError(t, w.Commit())

	assert.Equal(t, "Reg No.,verified,verified at\n\" A1\",True,2024-01-01 \n", readFile(t, w.Path()))
}

func TestSink_AtomicLongCollectionName(t *testing.T) {
	sink, dir := newTestSink(t, true)
	name := strings.Repeat("c", 255-len(FileExtension))

	w, err := sink.Create(name)
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Commit())
	require.NoError(t, w.Close())

	assert.Equal(t, []string{name + FileExtension}, listDir(t, dir))
	assert.Equal(t, "Reg No.,verified,verified at\n", readFile(t, w.Path()))
}

func TestSink_OverwritesExistingFile(t *testing.T) {
	for _, atomic := range []bool{true, false} {
		sink, dir := newTestSink(t, atomic)
		path := filepath.Join(dir, "students.csv")
		require.NoError(t, os.WriteFile(path, []byte("old content that is much longer than the new one\n"), 0o644))

		w, err := sink.Create("students")
		require.NoError(t, err)
		require.NoError(t, w.WriteHeader())
		require.NoError(t, w.Commit())

		assert.Equal(t, "Reg No.,verified,verified at\n", readFile(t, path))
	}
}

func TestSink_AtomicCloseWithoutCommitKeepsPreviousFile(t *testing.T) {
	sink, dir := newTestSink(t, true)
	path := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(path, []byte("previous\n"), 0o644))

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Write(model.Row{RegistrationNo: "A1", Verified: true}))
	require.NoError(t, w.Close())

	assert.Equal(t, "previous\n", readFile(t, path))
	assert.Equal(t, []string{"students.csv"}, listDir(t, dir), "temp file must be removed")
}

func TestSink_AtomicCloseWithoutCommitCreatesNothing(t *testing.T) {
	sink, dir := newTestSink(t, true)

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Close())

	assert.Empty(t, listDir(t, dir))
}

func TestSink_DirectCloseWithoutCommitKeepsPartialFile(t *testing.T) {
	sink, dir := newTestSink(t, false)

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Close())

	assert.Equal(t, "Reg No.,verified,verified at\n", readFile(t, filepath.Join(dir, "students.csv")))
}

func TestSink_CommitAfterCloseFails(t *testing.T) {
	sink, _ := newTestSink(t, true)

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	err = w.Commit()
	assert.True(t, apperrors.IsFileIO(err))
	assert.NoError(t, w.Close(), "second close is a no-op")
}

func TestSink_FileMode(t *testing.T) {
	sink, _ := newTestSink(t, true)

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Commit())

	info, err := os.Stat(w.Path())
	require.NoError(t, err)
	assert.Equal(t, filePerm, info.Mode().Perm())
}

func TestSink_CreatesOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	sink := NewSink(dir, true, logger.NewLoggerWithConfig("error", "text"))

	w, err := sink.Create("students")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Commit())

	assert.FileExists(t, filepath.Join(dir, "students.csv"))
}

func TestSink_RejectsUnsafeCollectionNames(t *testing.T) {
	sink, dir := newTestSink(t, true)

	for _, name := range []string{"", "../escape", "a/b", `a\b`} {
		w, err := sink.Create(name)
		assert.Nil(t, w, name)
		assert.True(t, apperrors.IsFileIO(err), name)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCollectionName, name)
	}
	assert.Empty(t, listDir(t, dir))
}

func TestSink_DottedNamesAreFiles(t *testing.T) {
	sink, dir := newTestSink(t, true)

	w, err := sink.Create("archive.2023")
	require.NoError(t, err)
	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.Commit())

	assert.Equal(t, filepath.Join(dir, "archive.2023.csv"), w.Path())
	assert.FileExists(t, w.Path())
}

func TestSink_UnwritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	sink := NewSink(dir, false, logger.NewLoggerWithConfig("error", "text"))
	w, err := sink.Create("students")
	assert.Nil(t, w)
	assert.True(t, apperrors.IsFileIO(err))
}
