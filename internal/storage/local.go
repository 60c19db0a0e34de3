package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

type LocalStorageProvider struct {
	baseDir string
}

func NewLocalStorage(baseDir string) (*LocalStorageProvider, error) {
	if baseDir == "" {
		return nil, errors.New("local storage path is required")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &LocalStorageProvider{
		baseDir: baseDir,
	}, nil
}

func (l *LocalStorageProvider) path(handle string) (string, error) {
	if err := ValidateHandle(handle); err != nil {
		return "", err
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(handle)), nil
}

// Store writes into a temporary sibling and renames it into place, so a
// canceled or failed write never leaves a partial blob behind.
func (l *LocalStorageProvider) Store(ctx context.Context, r io.Reader, suggestedName string) (*Object, error) {
	handle, err := NewHandle(suggestedName)
	if err != nil {
		return nil, err
	}
	fullPath, err := l.path(handle)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, newContextReader(ctx, r))
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	log.Debug().
		Str("handle", handle).
		Int64("size", written).
		Msg("blob stored")

	return &Object{Handle: handle, Size: written}, nil
}

func (l *LocalStorageProvider) Open(ctx context.Context, handle string) (io.ReadCloser, error) {
	fullPath, err := l.path(handle)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, handle)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (l *LocalStorageProvider) Exists(ctx context.Context, handle string) (bool, error) {
	fullPath, err := l.path(handle)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("error checking file existence: %w", err)
}

func (l *LocalStorageProvider) Delete(ctx context.Context, handle string) error {
	fullPath, err := l.path(handle)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorageProvider) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo

	err := filepath.WalkDir(l.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}
		handle := filepath.ToSlash(relPath)
		if filepath.Base(handle)[0] == '.' || !strings.HasPrefix(handle, prefix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{
			Handle:       handle,
			Size:         info.Size(),
			ModifiedTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory: %w", err)
	}

	return objects, nil
}

func (l *LocalStorageProvider) Close() error {
	return nil
}
