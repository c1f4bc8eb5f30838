package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

func TestFilesSave(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryFiles()
	svc := NewFiles(store, clock.Fake(time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))

	f, err := svc.Save(context.Background(), "reporte.pdf", "application/pdf", []byte("%PDF"))
	if err != nil {
		t.Fatal(err)
	}
	if f.ID.IsZero() || store.Len() != 1 {
		t.Fatalf("file not stored: %+v", f)
	}

	_, err = svc.Save(context.Background(), "vacio.txt", "text/plain", nil)
	wantKind(t, err, KindValidation)

	big := bytes.Repeat([]byte("a"), MaxUploadSize+1)
	_, err = svc.Save(context.Background(), "grande.bin", "application/octet-stream", big)
	wantKind(t, err, KindValidation)
	if store.Len() != 1 {
		t.Fatalf("rejected files were stored")
	}
}
