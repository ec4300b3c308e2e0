package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/ghar/internal/config"
	"github.com/hpungsan/ghar/internal/errors"
)

// Backup file formats. A .jsonl file holds a whole-household export; a .csv
// file holds one domain.
const (
	ExtJSONL = ".jsonl"
	ExtCSV   = ".csv"
)

// PathCheckMode says whether a backup path is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ValidatePath decides whether import or export may touch path.
//
// The file must be a .jsonl or .csv file sitting directly in the exports
// directory or in one of cfg.AllowedPaths, never in a subdirectory of them.
// cfg.AllowUnsafePaths lifts the directory rule only. Symlinks are refused in
// every mode, and reads additionally need the file to exist.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config) error {
	absPath, err := backupFilePath(path)
	if err != nil {
		return err
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		if err := checkBackupDir(filepath.Dir(absPath), cfg); err != nil {
			return err
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if isSymlink(absPath) {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// backupFilePath rejects empty, traversing, or wrongly typed paths and returns
// the absolute form of the rest.
func backupFilePath(path string) (string, error) {
	if path == "" {
		return "", errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return "", errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ExtJSONL, ExtCSV:
	default:
		return "", errors.NewInvalidRequest("path must have .jsonl or .csv extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}
	return absPath, nil
}

// checkBackupDir requires dir to be one of the backup directories itself. With
// no nesting allowed, no intermediate directory can be swapped for a symlink
// between this check and the open.
func checkBackupDir(dir string, cfg *config.Config) error {
	allowed, err := getAllowedDirs(cfg)
	if err != nil {
		return err
	}
	if !isDirectlyInAllowedDir(dir, allowed) {
		return errors.NewInvalidRequest(fmt.Sprintf(
			"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
	}
	if isSymlink(dir) {
		return errors.NewInvalidRequest("parent directory must not be a symlink")
	}
	return nil
}

// getAllowedDirs lists the exports directory followed by the absolute entries
// of cfg.AllowedPaths. Relative entries are ignored. An entry that is itself a
// symlink is replaced by its target.
func getAllowedDirs(cfg *config.Config) ([]string, error) {
	exports, err := DefaultExportsDir()
	if err != nil {
		return nil, err
	}
	candidates := []string{exports}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				candidates = append(candidates, p)
			}
		}
	}

	dirs := make([]string, 0, len(candidates))
	for _, c := range candidates {
		dir, err := filepath.Abs(filepath.Clean(c))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if isSymlink(dir) {
			if dir, err = filepath.EvalSymlinks(dir); err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func isDirectlyInAllowedDir(dir string, allowed []string) bool {
	dir = filepath.Clean(dir)
	for _, a := range allowed {
		if dir == filepath.Clean(a) {
			return true
		}
	}
	return false
}

// isSymlink reports whether path exists and is a symlink.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

// DefaultExportsDir is where backups go when no path is given: exports under
// $GHAR_HOME, or under ~/.ghar.
func DefaultExportsDir() (string, error) {
	if base := os.Getenv("GHAR_HOME"); base != "" {
		return filepath.Join(base, "exports"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("failed to get home directory: %w", err))
	}
	return filepath.Join(homeDir, config.DirName, "exports"), nil
}

// containsTraversal reports a ".." path element. Both separators count so
// that user input written with forward slashes is caught on Windows too.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "..", "-")

// SanitizeForFilename turns s into a single dash-separated file name element.
// Separators and ".." become dashes and control characters are dropped.
// Nothing usable left gives "unnamed".
func SanitizeForFilename(s string) string {
	s = filenameReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' })
	if len(parts) == 0 {
		return "unnamed"
	}
	return strings.Join(parts, "-")
}
