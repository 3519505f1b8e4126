package shell

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// collect copies the files matching patterns below base into dest and returns
// the number of files copied. Patterns use filepath.Match syntax relative to
// base; a matching directory is copied recursively. No patterns copies the
// whole base directory.
func collect(base string, patterns []string, dest string) (int, error) {
	info, err := os.Stat(base)
	if err != nil {
		return 0, fmt.Errorf("base directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("base directory %s is not a directory", base)
	}
	if len(patterns) == 0 {
		patterns = []string{"*"}
	}

	count := 0
	for _, pattern := range patterns {
		matches, err := filepath.Glob(filepath.Join(base, filepath.FromSlash(pattern)))
		if err != nil {
			return count, fmt.Errorf("artifact pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return count, fmt.Errorf("artifact pattern %q matched no files in %s", pattern, base)
		}
		for _, match := range matches {
			n, err := copyTree(base, match, dest)
			count += n
			if err != nil {
				return count, err
			}
		}
	}
	return count, nil
}

// copyTree copies src, a file or directory below base, to the same relative
// path below dest.
func copyTree(base, src, dest string) (int, error) {
	count := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dest, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if d.Type()&fs.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return count, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
