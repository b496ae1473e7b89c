package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUnsupportedOS is returned when the operating system is not supported.
var ErrUnsupportedOS = errors.New("unsupported operating system for disk space check")

// ErrNotWritable is returned when a directory cannot be created or written to.
var ErrNotWritable = errors.New("directory is not writable")

// EnsureWritable creates dir if needed and checks that files can be written in it.
func EnsureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotWritable, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(filepath.Clean(name))
}
