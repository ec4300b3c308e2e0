package ops

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
)

func TestValidatePath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()
	for _, path := range []string{
		"../backup.jsonl",
		"../../etc/backup.jsonl",
		"/tmp/../etc/backup.jsonl",
		"/tmp/safe/../../../etc/shadow.csv",
	} {
		t.Run(path, func(t *testing.T) {
			err := ValidatePath(path, PathCheckWrite, cfg)
			require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		})
	}
}

func TestValidatePath_Extensions(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	for _, name := range []string{"backup", "backup.json", "backup.txt"} {
		err := ValidatePath(filepath.Join(dir, name), PathCheckWrite, cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "%s: got %v", name, err)
	}
	for _, name := range []string{"backup.jsonl", "bills.csv", "BILLS.CSV"} {
		require.NoError(t, ValidatePath(filepath.Join(dir, name), PathCheckWrite, cfg), name)
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	t.Setenv("GHAR_HOME", t.TempDir())
	cfg := config.DefaultConfig()

	err := ValidatePath(filepath.Join(t.TempDir(), "backup.jsonl"), PathCheckWrite, cfg)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)

	exports, err := DefaultExportsDir()
	require.NoError(t, err)
	require.NoError(t, ValidatePath(filepath.Join(exports, "backup.jsonl"), PathCheckWrite, cfg))
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	t.Setenv("GHAR_HOME", t.TempDir())
	allowed := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{allowed, "relative/ignored"}

	file := filepath.Join(allowed, "in.jsonl")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0600))
	require.NoError(t, ValidatePath(file, PathCheckRead, cfg))

	nested := filepath.Join(allowed, "sub")
	require.NoError(t, os.MkdirAll(nested, 0700))
	err := ValidatePath(filepath.Join(nested, "out.jsonl"), PathCheckWrite, cfg)
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "nested paths are rejected, got %v", err)
}

func TestValidatePath_FileNotFound_ReadMode(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	err := ValidatePath(filepath.Join(t.TempDir(), "missing.jsonl"), PathCheckRead, cfg)
	require.True(t, errors.Is(err, errors.ErrFileNotFound), "got %v", err)
}

func TestValidatePath_SymlinkRejected_EvenWithUnsafePaths(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	target := filepath.Join(dir, "target.jsonl")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0600))
	link := filepath.Join(dir, "link.jsonl")
	require.NoError(t, os.Symlink(target, link))

	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true
	for _, mode := range []PathCheckMode{PathCheckRead, PathCheckWrite} {
		err := ValidatePath(link, mode, cfg)
		require.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
	}
}

func TestContainsTraversal(t *testing.T) {
	require.True(t, containsTraversal("../a.jsonl"))
	require.True(t, containsTraversal("a/../b.jsonl"))
	require.False(t, containsTraversal("a..b.jsonl"))
	require.False(t, containsTraversal("/tmp/exports/bills.csv"))
}

func TestSanitizeForFilename(t *testing.T) {
	tests := map[string]string{
		"wifi":              "wifi",
		"path/to/file":      "path-to-file",
		"path\\to\\file":    "path-to-file",
		"../../../etc/pass": "etc-pass",
		"foo\x00bar":        "foobar",
		"../../..":          "unnamed",
		"a---b":             "a-b",
		"ghar-中文": "ghar-中文",
	}
	for in, want := range tests {
		require.Equal(t, want, SanitizeForFilename(in), in)
	}
}

func TestGetAllowedDirs(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	home := t.TempDir()
	t.Setenv("GHAR_HOME", home)

	target := t.TempDir()
	link := filepath.Join(t.TempDir(), "backups")
	require.NoError(t, os.Symlink(target, link))

	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{link, "relative/ignored"}
	dirs, err := getAllowedDirs(cfg)
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(home, "exports"), resolved}, dirs)

	// a file in the symlinked entry is matched against its target
	file := filepath.Join(resolved, "bills.csv")
	require.NoError(t, os.WriteFile(file, []byte("id\n"), 0600))
	require.NoError(t, ValidatePath(file, PathCheckRead, cfg))
}
