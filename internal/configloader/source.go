package configloader

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// Source supplies the raw configuration document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// FileSource reads the document from a file on disk.
type FileSource struct {
	Path string
}

// Load reads the file. A missing file is ErrNoConfig.
func (s FileSource) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, configErr(ErrNoConfig, "%s does not exist", s.Path)
	}
	if err != nil {
		return nil, configErr(ErrNoConfig, "read %s: %w", s.Path, err)
	}
	return data, nil
}

// StaticSource serves a fixed document.
type StaticSource []byte

// Load returns the document.
func (s StaticSource) Load(context.Context) ([]byte, error) {
	if len(s) == 0 {
		return nil, &ConfigError{Reason: ErrNoConfig}
	}
	return s, nil
}
