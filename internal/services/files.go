package services

import (
	"context"
	"time"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

// MaxUploadSize bounds files accepted by /upload.
const MaxUploadSize = 10 << 20

type Files struct {
	store repository.FileStore
	clock clock.Clock
}

func NewFiles(store repository.FileStore, clk clock.Clock) *Files {
	return &Files{store: store, clock: clk}
}

func (s *Files) Save(ctx context.Context, name, contentType string, data []byte) (*models.File, error) {
	if len(data) == 0 {
		return nil, validationError("No file uploaded.")
	}
	if len(data) > MaxUploadSize {
		return nil, validationError("❌ El archivo supera el tamaño máximo de 10 MB")
	}
	f := &models.File{
		CreatedAt:   s.clock.Now().UTC().Truncate(time.Millisecond),
		Name:        name,
		Data:        data,
		ContentType: contentType,
	}
	if err := s.store.Save(ctx, f); err != nil {
		return nil, storageError("Error saving file to database.", err)
	}
	return f, nil
}
