package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

var profileExtensions = []string{".json", ".yaml", ".yml"}

// FileStore reads profiles from directories of JSON or YAML documents.
// Directories are searched in order, so internal profiles shadow public ones.
type FileStore struct {
	dirs []string
}

// NewFileStore builds a file-backed resolver. Empty directory entries are ignored.
func NewFileStore(dirs ...string) *FileStore {
	var kept []string
	for _, d := range dirs {
		if strings.TrimSpace(d) != "" {
			kept = append(kept, d)
		}
	}
	return &FileStore{dirs: kept}
}

func (s *FileStore) Resolve(ctx context.Context, business string) (Resolution, error) {
	if !ValidName(business) {
		return Resolution{}, nil
	}
	for _, name := range candidates(business) {
		for _, dir := range s.dirs {
			if err := ctx.Err(); err != nil {
				return Resolution{}, err
			}
			p, err := s.read(dir, name)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return Resolution{}, err
			}
			return found(name, normalize(name, p)), nil
		}
	}
	return Resolution{}, nil
}

func (s *FileStore) read(dir, name string) (*BusinessProfile, error) {
	for _, ext := range profileExtensions {
		path := filepath.Join(dir, name+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("profile: read %s: %w", path, err)
		}
		var p BusinessProfile
		if ext == ".json" {
			err = json.Unmarshal(data, &p)
		} else {
			err = yaml.Unmarshal(data, &p)
		}
		if err != nil {
			return nil, fmt.Errorf("profile: decode %s: %w", path, err)
		}
		return &p, nil
	}
	return nil, fs.ErrNotExist
}

// Put writes a JSON profile into the last configured directory (the public one).
func (s *FileStore) Put(_ context.Context, business string, p *BusinessProfile) error {
	if !ValidName(business) {
		return fmt.Errorf("%w: %q", ErrInvalidName, business)
	}
	if len(s.dirs) == 0 {
		return errors.New("profile: no profile directory configured")
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("profile: marshal: %w", err)
	}
	dir := s.dirs[len(s.dirs)-1]
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("profile: create dir: %w", err)
	}
	tmp := filepath.Join(dir, "."+business+".json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("profile: write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, business+".json")); err != nil {
		return fmt.Errorf("profile: rename: %w", err)
	}
	return nil
}
