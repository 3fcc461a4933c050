package filler

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/fieldmap"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
)

// ExcelFiller fills the LMNP spreadsheet template. Numeric mappings are
// written as numeric cells, everything else as text.
type ExcelFiller struct {
	templatePath string
	fm           *fieldmap.ExcelMap
	store        storage.Storage
	log          *zap.Logger
}

// NewExcel creates a spreadsheet filler for the given template and field map.
func NewExcel(templatePath string, fm *fieldmap.ExcelMap, store storage.Storage, log *zap.Logger) *ExcelFiller {
	return &ExcelFiller{templatePath: templatePath, fm: fm, store: store, log: log}
}

func (f *ExcelFiller) Kind() model.ArtifactKind {
	return model.ArtifactExcel
}

func (f *ExcelFiller) Fill(ctx context.Context, declarationID string, data map[string]any) (*model.GeneratedArtifact, error) {
	wb, err := excelize.OpenFile(f.templatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrTemplateNotFound, f.templatePath, err)
	}
	defer wb.Close()

	for _, c := range f.fm.Cells {
		idx, err := wb.GetSheetIndex(c.Sheet)
		if err != nil || idx < 0 {
			f.warn(declarationID, c.Sheet+"!"+c.Cell, "sheet not in template")
			continue
		}

		if c.Type == fieldmap.Number {
			n, _ := fieldmap.NumberValue(data[c.Key])
			err = wb.SetCellValue(c.Sheet, c.Cell, n)
		} else {
			err = wb.SetCellStr(c.Sheet, c.Cell, fieldmap.TextValue(data[c.Key]))
		}
		if err != nil {
			f.warn(declarationID, c.Sheet+"!"+c.Cell, err.Error())
		}
	}

	buf, err := wb.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	key := path.Join(string(model.ArtifactExcel), model.ArtifactExcel.FileName(declarationID))
	info, err := f.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), storage.PutObjectOptions{
		Size:        int64(buf.Len()),
		ContentType: model.ArtifactExcel.ContentType(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store %s: %v", ErrSerialization, key, err)
	}

	return &model.GeneratedArtifact{
		Kind:      model.ArtifactExcel,
		Key:       info.Key,
		Size:      info.Size,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (f *ExcelFiller) warn(declarationID, cell, reason string) {
	f.log.Warn("excel field write skipped",
		zap.String("declaration_id", declarationID),
		zap.String("cell", cell),
		zap.String("reason", reason),
	)
}
