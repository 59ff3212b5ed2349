package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTree creates the given relative file paths under a temp dir.
func makeTree(t *testing.T, files ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		full := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(f), 0o644))
	}
	return root
}

func TestFindFilesByExtension(t *testing.T) {
	// --- Arrange ---
	root := makeTree(t, "a.hcl", "b.txt", "sub/c.hcl", "sub/deeper/d.hcl")

	// --- Act ---
	files, err := FindFilesByExtension(root, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "sub", "c.hcl"),
		filepath.Join(root, "sub", "deeper", "d.hcl"),
	}, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}

func TestFindFiles(t *testing.T) {
	root := makeTree(t, "a.hcl", "b.txt", "sub/c")

	files, err := FindFiles(root)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	empty, err := FindFiles(t.TempDir())
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = FindFiles(filepath.Join(root, "missing"))
	require.Error(t, err)
}

func TestEntriesAtDepth(t *testing.T) {
	root := makeTree(t, "top.txt", "a/one.txt", "a/b/two.txt", "c/three.txt")

	testCases := []struct {
		depth int
		want  []string
	}{
		{depth: 1, want: []string{"a", "c", "top.txt"}},
		{depth: 2, want: []string{"a/b", "a/one.txt", "c/three.txt"}},
		{depth: 3, want: []string{"a/b/two.txt"}},
		{depth: 4, want: []string{}},
	}

	for _, tc := range testCases {
		got, err := EntriesAtDepth(root, tc.depth)
		require.NoError(t, err)
		want := make([]string, len(tc.want))
		for i, rel := range tc.want {
			want[i] = filepath.Join(root, filepath.FromSlash(rel))
		}
		assert.Equal(t, want, got, "depth %d", tc.depth)
	}
}
