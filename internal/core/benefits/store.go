// package benefits/store.go
package benefits

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"difal-service/internal/domain"
)

// Store supplies the per-item benefit configuration of a company. Warnings
// describe rows that were skipped; an error means the source itself failed.
type Store interface {
	Load(ctx context.Context, companyCNPJ string) (domain.BenefitConfig, []string, error)
}

// FileStore reads benefits from a spreadsheet or CSV on disk.
type FileStore struct {
	Path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load(ctx context.Context, companyCNPJ string) (domain.BenefitConfig, []string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("falha ao abrir planilha de benefícios: %w", err)
	}
	defer f.Close()

	return ParseSheet(filepath.Base(s.Path), f, companyCNPJ)
}

// StaticStore returns a fixed configuration, used for uploads and tests.
type StaticStore struct {
	Config   domain.BenefitConfig
	Warnings []string
}

func (s StaticStore) Load(_ context.Context, _ string) (domain.BenefitConfig, []string, error) {
	return s.Config, s.Warnings, nil
}
