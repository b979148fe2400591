package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
	return path
}

func TestDiscoverFiles_DirectoryUsesDefaultFormats(t *testing.T) {
	dir := t.TempDir()
	png := touch(t, filepath.Join(dir, "zeugnis.png"))
	pdf := touch(t, filepath.Join(dir, "bulletin.PDF"))
	touch(t, filepath.Join(dir, "notes.txt"))

	files, err := discoverFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{png, pdf}, files)
}

func TestDiscoverFiles_ExplicitFileSkipsFormatFilter(t *testing.T) {
	dir := t.TempDir()
	odd := touch(t, filepath.Join(dir, "scan.bin"))

	files, err := discoverFiles([]string{odd}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{odd}, files)
}

func TestDiscoverFiles_Recursion(t *testing.T) {
	dir := t.TempDir()
	root := touch(t, filepath.Join(dir, "root.jpg"))
	nested := touch(t, filepath.Join(dir, "2024", "nested.jpg"))
	touch(t, filepath.Join(dir, ".cache", "hidden.jpg"))

	flat, err := discoverFiles([]string{dir}, false, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{root}, flat)

	deep, err := discoverFiles([]string{dir}, true, nil, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{root, nested}, deep)
}

func TestDiscoverFiles_IncludeExclude(t *testing.T) {
	dir := t.TempDir()
	a := touch(t, filepath.Join(dir, "term1.png"))
	b := touch(t, filepath.Join(dir, "term2.png"))
	touch(t, filepath.Join(dir, "draft-term3.png"))
	touch(t, filepath.Join(dir, "term4.jpg"))

	files, err := discoverFiles([]string{dir}, false, []string{"*.png"}, []string{"draft-*"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)
}

func TestDiscoverFiles_MissingPath(t *testing.T) {
	files, err := discoverFiles([]string{"/nonexistent/directory"}, false, nil, nil)
	require.Error(t, err)
	assert.Nil(t, files)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestMatchesAny(t *testing.T) {
	patterns := []string{"*.png", "*.jpg", "special.*"}
	testCases := []struct {
		filename string
		expected bool
	}{
		{"test.png", true},
		{"TEST.PNG", true},
		{"dir/photo.jpg", true},
		{"special.gif", true},
		{"document.pdf", false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, matchesAny(tc.filename, patterns), "filename=%s", tc.filename)
	}
	assert.False(t, matchesAny("test.png", nil))
}
