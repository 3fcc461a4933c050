package filler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/fieldmap"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/model"
	"github.com/laboussolefiscale-rgb/backend-lmnp/internal/storage"
)

// PDFFiller fills the AcroForm text fields of the CERFA 2031 template.
//
// The fill is driven by the template's actual field set: the form is
// exported first, mapped fields absent from it are skipped with a warning,
// and only the intersection is filled. All form values are written as text.
type PDFFiller struct {
	templatePath string
	fm           *fieldmap.PDFMap
	store        storage.Storage
	log          *zap.Logger
	conf         *pdfmodel.Configuration
}

// NewPDF creates a PDF form filler for the given template and field map.
func NewPDF(templatePath string, fm *fieldmap.PDFMap, store storage.Storage, log *zap.Logger) *PDFFiller {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &PDFFiller{templatePath: templatePath, fm: fm, store: store, log: log, conf: conf}
}

func (f *PDFFiller) Kind() model.ArtifactKind {
	return model.ArtifactPDF
}

// fillField is one entry of the pdfcpu form-fill document.
type fillField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Locked bool   `json:"locked"`
}

type fillForm struct {
	TextField []fillField `json:"textfield"`
}

type fillDoc struct {
	Forms []fillForm `json:"forms"`
}

// exportedForm matches the shape of pdfcpu's form export, reduced to the
// field names per widget type.
type exportedForm struct {
	Forms []struct {
		TextField        []struct{ Name string `json:"name"` } `json:"textfield"`
		DateField        []struct{ Name string `json:"name"` } `json:"datefield"`
		CheckBox         []struct{ Name string `json:"name"` } `json:"checkbox"`
		RadioButtonGroup []struct{ Name string `json:"name"` } `json:"radiobuttongroup"`
		ComboBox         []struct{ Name string `json:"name"` } `json:"combobox"`
		ListBox          []struct{ Name string `json:"name"` } `json:"listbox"`
	} `json:"forms"`
}

// TemplateFields lists the template's text field names plus, second, the
// names of all remaining widget types.
func (f *PDFFiller) TemplateFields() (textFields []string, others []string, err error) {
	tmp, err := os.CreateTemp("", "form-export-*.json")
	if err != nil {
		return nil, nil, err
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := api.ExportFormFile(f.templatePath, tmp.Name(), f.conf); err != nil {
		return nil, nil, fmt.Errorf("export form of %s: %w", f.templatePath, err)
	}

	b, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, nil, err
	}
	var export exportedForm
	if err := json.Unmarshal(b, &export); err != nil {
		return nil, nil, fmt.Errorf("parse form export: %w", err)
	}

	for _, frm := range export.Forms {
		for _, fld := range frm.TextField {
			textFields = append(textFields, fld.Name)
		}
		for _, fld := range frm.DateField {
			others = append(others, fld.Name)
		}
		for _, fld := range frm.CheckBox {
			others = append(others, fld.Name)
		}
		for _, fld := range frm.RadioButtonGroup {
			others = append(others, fld.Name)
		}
		for _, fld := range frm.ComboBox {
			others = append(others, fld.Name)
		}
		for _, fld := range frm.ListBox {
			others = append(others, fld.Name)
		}
	}
	return textFields, others, nil
}

// DumpFields logs the template's complete field list and every field-map
// entry that does not exist in the template. Diagnostic mode, enabled with
// DUMP_PDF_FIELDS=true.
func (f *PDFFiller) DumpFields() error {
	textFields, others, err := f.TemplateFields()
	if err != nil {
		return err
	}
	f.log.Info("pdf template field list",
		zap.String("template", f.templatePath),
		zap.Strings("text_fields", textFields),
		zap.Strings("other_fields", others),
	)
	if missing := f.fm.MissingFrom(append(textFields, others...)); len(missing) > 0 {
		f.log.Warn("field map entries absent from pdf template",
			zap.Strings("fields", missing),
		)
	}
	return nil
}

func (f *PDFFiller) Fill(ctx context.Context, declarationID string, data map[string]any) (*model.GeneratedArtifact, error) {
	if _, err := os.Stat(f.templatePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, f.templatePath)
	}

	textFields, _, err := f.TemplateFields()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateNotFound, err)
	}
	available := make(map[string]struct{}, len(textFields))
	for _, n := range textFields {
		available[n] = struct{}{}
	}

	var form fillForm
	for _, fld := range f.fm.Fields {
		if _, ok := available[fld.Field]; !ok {
			f.log.Warn("pdf field not in template",
				zap.String("declaration_id", declarationID),
				zap.String("field", fld.Field),
			)
			continue
		}
		value, _ := fld.Value(data)
		form.TextField = append(form.TextField, fillField{Name: fld.Field, Value: value})
	}

	fillJSON, err := json.Marshal(fillDoc{Forms: []fillForm{form}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	workDir, err := os.MkdirTemp("", "cerfa-fill-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	defer os.RemoveAll(workDir)

	jsonPath := filepath.Join(workDir, "fill.json")
	if err := os.WriteFile(jsonPath, fillJSON, 0o600); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	outPath := filepath.Join(workDir, model.ArtifactPDF.FileName(declarationID))
	if err := api.FillFormFile(f.templatePath, jsonPath, outPath, f.conf); err != nil {
		return nil, fmt.Errorf("%w: fill form: %v", ErrSerialization, err)
	}

	out, err := os.Open(outPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	defer out.Close()
	st, err := out.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
	}

	key := path.Join(string(model.ArtifactPDF), model.ArtifactPDF.FileName(declarationID))
	info, err := f.store.Put(ctx, key, out, storage.PutObjectOptions{
		Size:        st.Size(),
		ContentType: model.ArtifactPDF.ContentType(),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: store %s: %v", ErrSerialization, key, err)
	}

	return &model.GeneratedArtifact{
		Kind:      model.ArtifactPDF,
		Key:       info.Key,
		Size:      info.Size,
		CreatedAt: time.Now().UTC(),
	}, nil
}
