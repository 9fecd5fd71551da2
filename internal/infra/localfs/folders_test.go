package localfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFolders_Exists(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/work/job", 0o755))
	require.NoError(t, afero.WriteFile(fs, "/work/file.txt", []byte("x"), 0o644))
	folders := NewWithFs(fs)

	tests := []struct {
		path string
		want bool
	}{
		{"/work/job", true},
		{"/work/missing", false},
		{"/work/file.txt", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := folders.Exists(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFolders_ClearKeepsFolder(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/job/a.txt", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/job/src/main.c", []byte("int main;"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/other/keep.txt", []byte("k"), 0o644))
	folders := NewWithFs(fs)

	require.NoError(t, folders.Clear("/work/job"))

	exists, err := folders.Exists("/work/job")
	require.NoError(t, err)
	assert.True(t, exists)

	entries, err := afero.ReadDir(fs, "/work/job")
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = fs.Stat("/work/other/keep.txt")
	assert.NoError(t, err)
}

func TestFolders_ClearMissingFolder(t *testing.T) {
	assert.NoError(t, NewWithFs(afero.NewMemMapFs()).Clear("/nope"))
}

func TestFolders_OsFs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stale.txt"), []byte("old"), 0o644))
	folders := New()

	require.NoError(t, folders.Clear(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFolders_ClearSkipsKeptPaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/job/.tfs-checkout.toml", []byte("[workspace]"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/job/.tfs-checkout/workspaces.toml", []byte("version = 1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/job/build/state/logs/checkout.log", []byte("log"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/job/build/out.o", []byte("o"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/job/src/main.c", []byte("int main;"), 0o644))
	folders := NewWithFs(fs).WithKeep(
		"/work/job/.tfs-checkout.toml",
		"/work/job/.tfs-checkout/",
		"/work/job/build/state",
		"",
	)

	require.NoError(t, folders.Clear("/work/job"))

	for _, kept := range []string{
		"/work/job/.tfs-checkout.toml",
		"/work/job/.tfs-checkout/workspaces.toml",
		"/work/job/build/state/logs/checkout.log",
	} {
		_, err := fs.Stat(kept)
		assert.NoError(t, err, kept)
	}
	for _, removed := range []string{"/work/job/build/out.o", "/work/job/src"} {
		_, err := fs.Stat(removed)
		assert.True(t, os.IsNotExist(err), removed)
	}
}
