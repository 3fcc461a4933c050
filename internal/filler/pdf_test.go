package filler

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/fieldmap"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
)

// testAcroForm describes a minimal two-field AcroForm that pdfcpu can
// materialize into a real template PDF for fill tests.
const testAcroForm = `{
	"paper": "A4",
	"origin": "upperLeft",
	"fonts": {
		"input": {"name": "Helvetica", "size": 12}
	},
	"pages": {
		"1": {
			"content": {
				"textfield": [
					{"id": "SIRET", "position": [72, 100], "width": 200, "font": {"name": "$input"}},
					{"id": "Annéeexercice", "position": [72, 140], "width": 120, "font": {"name": "$input"}}
				]
			}
		}
	}
}`

// writeTestTemplate creates an AcroForm PDF under dir and returns its path.
func writeTestTemplate(t *testing.T, dir string) string {
	t.Helper()
	createJSON := filepath.Join(dir, "form.json")
	require.NoError(t, os.WriteFile(createJSON, []byte(testAcroForm), 0o600))

	tpl := filepath.Join(dir, "2031-sd_5015.pdf")
	require.NoError(t, api.CreateFile("", createJSON, tpl, nil))
	return tpl
}

func testPDFMap() *fieldmap.PDFMap {
	return &fieldmap.PDFMap{
		Version: 1,
		Fields: []fieldmap.Field{
			{Key: "numroDeSiret", Field: "SIRET", Type: fieldmap.Text},
			{Key: "resultatFiscal", Field: "Tab1col3 Total", Type: fieldmap.Number},
		},
	}
}

func TestPDFFiller_Kind(t *testing.T) {
	f := NewPDF("2031-sd_5015.pdf", testPDFMap(), nil, zap.NewNop())
	assert.Equal(t, model.ArtifactPDF, f.Kind())
}

func TestPDFFiller_TemplateNotFound(t *testing.T) {
	store, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	f := NewPDF(filepath.Join(t.TempDir(), "missing.pdf"), testPDFMap(), store, zap.NewNop())

	_, err = f.Fill(context.Background(), "abc123", map[string]any{})
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestPDFFiller_Fill(t *testing.T) {
	tpl := writeTestTemplate(t, t.TempDir())

	store, err := storage.NewFilesystem(t.TempDir())
	require.NoError(t, err)

	fm := &fieldmap.PDFMap{
		Version: 1,
		Fields: []fieldmap.Field{
			{Key: "numroDeSiret", Field: "SIRET", Type: fieldmap.Text},
			{Key: "annee", Field: "Annéeexercice", Type: fieldmap.Text},
			{Key: "ville", Field: "ChampDisparu", Type: fieldmap.Text},
		},
	}
	f := NewPDF(tpl, fm, store, zap.NewNop())

	textFields, others, err := f.TemplateFields()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"SIRET", "Annéeexercice"}, textFields)
	assert.Empty(t, others)

	// "annee" has no value in the data and "ChampDisparu" does not exist
	// in the template. Neither may fail the fill: the first writes an
	// empty value, the second is skipped with a warning.
	art, err := f.Fill(context.Background(), "abc123", map[string]any{
		"numroDeSiret": "12345678900011",
		"ville":        "Lyon",
	})
	require.NoError(t, err)

	assert.Equal(t, model.ArtifactPDF, art.Kind)
	assert.Equal(t, "pdf/cerfa-2031-abc123.pdf", art.Key)
	assert.Positive(t, art.Size)

	rc, info, err := store.Get(context.Background(), art.Key)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, art.Size, info.Size)
}

func TestFillDocShape(t *testing.T) {
	doc := fillDoc{Forms: []fillForm{{TextField: []fillField{
		{Name: "SIRET", Value: "12345678900011"},
		{Name: "Tab1col3 Total", Value: "1500"},
	}}}}

	b, err := json.Marshal(doc)
	require.NoError(t, err)

	// The fill document must keep the pdfcpu form schema.
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(b, &parsed))
	forms, ok := parsed["forms"].([]any)
	require.True(t, ok)
	require.Len(t, forms, 1)
	fields := forms[0].(map[string]any)["textfield"].([]any)
	assert.Len(t, fields, 2)
	first := fields[0].(map[string]any)
	assert.Equal(t, "SIRET", first["name"])
	assert.Equal(t, "12345678900011", first["value"])
	assert.Equal(t, false, first["locked"])
}

func TestExportedFormParsing(t *testing.T) {
	raw := `{
		"header": {"source": "2031-sd_5015.pdf", "version": "pdfcpu"},
		"forms": [{
			"textfield": [
				{"pages": [1], "id": "30", "name": "SIRET", "value": ""},
				{"pages": [1], "id": "31", "name": "Mél", "value": ""}
			],
			"checkbox": [
				{"pages": [1], "id": "40", "name": "CaseBIC", "value": false}
			]
		}]
	}`

	var export exportedForm
	require.NoError(t, json.Unmarshal([]byte(raw), &export))
	require.Len(t, export.Forms, 1)
	assert.Equal(t, "SIRET", export.Forms[0].TextField[0].Name)
	assert.Equal(t, "Mél", export.Forms[0].TextField[1].Name)
	assert.Equal(t, "CaseBIC", export.Forms[0].CheckBox[0].Name)
}
