// Package jsonfile loads snow-profile records from a JSON file on disk.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/couchcryptid/snow-profile-map/internal/domain"
)

// Source reads the profile list from a single file path.
type Source struct {
	path   string
	logger *slog.Logger
}

// NewSource creates a Source for path.
func NewSource(path string, logger *slog.Logger) *Source {
	return &Source{path: path, logger: logger}
}

// Location returns the file path the source reads.
func (s *Source) Location() string {
	return s.path
}

// LoadProfiles reads and decodes the whole file. A missing file yields
// domain.ErrProfilesNotFound; read failures yield domain.ErrProfilesUnreadable
// and undecodable payloads domain.ErrProfilesMalformed.
func (s *Source) LoadProfiles(ctx context.Context) ([]domain.ProfileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProfilesNotFound, s.path)
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrProfilesUnreadable, err)
	}
	s.logger.Debug("profiles file read", "path", s.path, "bytes", len(data))

	records, err := domain.DecodeProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return records, nil
}
