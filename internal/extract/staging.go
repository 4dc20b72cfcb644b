package extract

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Stager materializes files into an isolated working directory so a
// batch run considers exactly the files it was handed. It links when the
// platform supports symlinks and copies otherwise; the capability is
// probed once at construction rather than discovered per file.
type Stager struct {
	canLink bool
}

// NewStager probes symlink support and returns a stager using the best
// available strategy.
func NewStager() *Stager {
	return &Stager{canLink: probeSymlink()}
}

func probeSymlink() bool {
	dir, err := os.MkdirTemp("", "staging_probe_")
	if err != nil {
		return false
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, "target")
	if err := os.WriteFile(target, nil, 0644); err != nil {
		return false
	}

	return os.Symlink(target, filepath.Join(dir, "link")) == nil
}

// Stage materializes each existing source file into dstDir under its
// base name and returns the staged paths. Missing sources are skipped;
// a staging failure for one file is returned as an error since it means
// the working set would be silently incomplete.
func (s *Stager) Stage(dstDir string, paths []string) ([]string, error) {
	staged := make([]string, 0, len(paths))

	for _, src := range paths {
		if src == "" {
			continue
		}

		if _, err := os.Stat(src); err != nil {
			continue
		}

		dst := filepath.Join(dstDir, filepath.Base(src))

		if err := s.materialize(src, dst); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", src, err)
		}

		staged = append(staged, dst)
	}

	return staged, nil
}

func (s *Stager) materialize(src, dst string) error {
	if s.canLink {
		abs, err := filepath.Abs(src)
		if err != nil {
			return err
		}
		return os.Symlink(abs, dst)
	}

	return copyFile(src, dst)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}

	return out.Close()
}
