package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a user-provided path would escape its
// base directory via .., an absolute path, or a symlink pointing outside.
var ErrPathTraversal = errors.New("config: path traversal denied")

// SafeResolve resolves a user-provided path within a base directory. The
// returned path is canonical and guaranteed to stay inside base. The base
// directory and the target must exist.
func SafeResolve(base string, userPath string) (string, error) {
	if strings.HasPrefix(userPath, "/") || strings.HasPrefix(userPath, `\`) || strings.ContainsRune(userPath, 0) {
		return "", ErrPathTraversal
	}

	absBase, err := filepath.Abs(base)
	if err != nil {
		return "", fmt.Errorf("config: invalid base directory: %w", err)
	}

	canonicalBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return "", fmt.Errorf("config: invalid base directory: %w", err)
	}

	// EvalSymlinks resolves ., .. and symlinks to their real targets on disk,
	// so the prefix check below cannot be fooled by either.
	resolved, err := filepath.EvalSymlinks(filepath.Join(canonicalBase, userPath))
	if err != nil {
		return "", fmt.Errorf("config: path not found: %w", err)
	}

	if resolved != canonicalBase && !strings.HasPrefix(resolved, canonicalBase+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}

	return resolved, nil
}
