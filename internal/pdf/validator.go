package pdf

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Validator handles PDF upload validation
type Validator struct {
	maxFileSize int64
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64) *Validator {
	return &Validator{
		maxFileSize: maxFileSize,
	}
}

// CheckName rejects names that are not PDF files
func (v *Validator) CheckName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", name)
	}
	return nil
}

// CheckSize rejects empty and oversized content
func (v *Validator) CheckSize(size int64) error {
	if size == 0 {
		return fmt.Errorf("file is empty")
	}
	if size > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", size, v.maxFileSize)
	}
	return nil
}

// Inspect validates an uploaded PDF and reads its page count with pdfcpu
// in relaxed mode.
func (v *Validator) Inspect(name string, data []byte) (*InspectResult, error) {
	if err := v.CheckName(name); err != nil {
		return nil, err
	}
	if err := v.CheckSize(int64(len(data))); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("invalid PDF file: %w", err)
	}

	return &InspectResult{
		Name:  filepath.Base(name),
		Size:  int64(len(data)),
		Pages: ctx.PageCount,
	}, nil
}
