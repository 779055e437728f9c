// Package report encodes training artifacts and writes them to one or more
// destinations (a local directory, S3, a git repository).
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Destination is the interface for an artifact target.
type Destination interface {
	// Write stores data under name, replacing any previous content.
	Write(ctx context.Context, name string, data []byte) error
}

// Flusher is implemented by destinations that batch writes, such as a git
// repository committing all artifacts at once.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Artifact is one named output file.
type Artifact struct {
	Name string
	Data []byte
}

// Publish writes every artifact to every destination and flushes the
// destinations that batch. It stops at the first error.
func Publish(ctx context.Context, artifacts []Artifact, destinations ...Destination) error {
	for i, dest := range destinations {
		for _, a := range artifacts {
			if err := dest.Write(ctx, a.Name, a.Data); err != nil {
				return fmt.Errorf("destination %d: write %s: %w", i, a.Name, err)
			}
		}
		if f, ok := dest.(Flusher); ok {
			if err := f.Flush(ctx); err != nil {
				return fmt.Errorf("destination %d: flush: %w", i, err)
			}
		}
	}
	return nil
}

// DirDestination writes artifacts as files in a local directory.
type DirDestination struct {
	dir string
}

// NewDirDestination creates a directory destination. The directory is
// created on the first write.
func NewDirDestination(dir string) *DirDestination {
	return &DirDestination{dir: dir}
}

// Write writes data to dir/name through a temporary file so readers never
// see a partial artifact.
func (d *DirDestination) Write(_ context.Context, name string, data []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	path := filepath.Join(d.dir, name)
	tmp, err := os.CreateTemp(d.dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
