package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/unicatolica/registro-huellas/internal/clock"
	"github.com/unicatolica/registro-huellas/internal/models"
	"github.com/unicatolica/registro-huellas/internal/repository"
)

var requiredImportFields = []string{"nombre", "apellido", "cedula", "idInstitucional", "rolUniversidad"}

// ImportResult summarizes a spreadsheet import. Errors are per row.
type ImportResult struct {
	Imported int
	Errors   []string
}

// Importer loads persons from the first sheet of an Excel workbook whose
// header row names person fields.
type Importer struct {
	store  repository.PersonStore
	clock  clock.Clock
	loc    *time.Location
	logger *slog.Logger
}

func NewImporter(store repository.PersonStore, clk clock.Clock, loc *time.Location, logger *slog.Logger) *Importer {
	if loc == nil {
		loc = time.UTC
	}
	return &Importer{store: store, clock: clk, loc: loc, logger: logger}
}

func (im *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, validationError("❌ Error al procesar el archivo Excel")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, validationError("❌ El archivo no contiene hojas")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, validationError("❌ Error al procesar el archivo Excel")
	}

	res := &ImportResult{}
	if len(rows) < 2 {
		return res, nil
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}

	for i, row := range rows[1:] {
		line := i + 2 // sheet row number, header is row 1
		if blank(row) {
			continue
		}
		if msg := im.importRow(ctx, header, row); msg != "" {
			res.Errors = append(res.Errors, fmt.Sprintf("Fila %d: %s", line, msg))
			continue
		}
		res.Imported++
	}

	im.logger.Info("persons imported", "imported", res.Imported, "rejected", len(res.Errors))
	return res, nil
}

// importRow stores one row and returns the rejection reason, if any.
func (im *Importer) importRow(ctx context.Context, header, row []string) string {
	fields := make(map[string]string, len(header))
	for col, name := range header {
		if col < len(row) {
			fields[name] = row[col]
		}
	}
	p := &models.Person{}
	setFields(p, fields)

	for _, name := range requiredImportFields {
		if v, _ := p.Lookup(name); v == "" {
			return "Faltan campos requeridos"
		}
	}

	exists, err := im.store.Exists(ctx, "cedula", p.Cedula)
	if err != nil {
		im.logger.Error("import lookup failed", "error", err)
		return "Error al validar la fila"
	}
	if exists {
		return fmt.Sprintf("La cédula %s ya existe", p.Cedula)
	}
	exists, err = im.store.Exists(ctx, "idInstitucional", p.IDInstitucional)
	if err != nil {
		im.logger.Error("import lookup failed", "error", err)
		return "Error al validar la fila"
	}
	if exists {
		return fmt.Sprintf("El ID institucional %s ya existe", p.IDInstitucional)
	}

	now := im.clock.Now().In(im.loc)
	p.Fecha = now.Format(dateLayout)
	p.Hora = now.Format(timeLayout)

	if err := im.store.Insert(ctx, p); err != nil {
		var svcErr *Error
		if errors.As(personWriteError(err, ""), &svcErr) && svcErr.Kind == KindConflict {
			return svcErr.Message
		}
		im.logger.Error("import insert failed", "error", err)
		return "Error al guardar la fila"
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
