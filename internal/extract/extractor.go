package extract

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/pdf"
)

// PageReader turns PDF bytes into per-page text blocks.
type PageReader interface {
	ReadPages(data []byte) (pdf.Pages, error)
}

// Extractor pulls bill fields out of PDF text. It never fails: anything it
// cannot recognise is left empty for the reviewer.
type Extractor struct {
	reader PageReader
	log    *zap.Logger
}

// New creates an Extractor reading PDFs through reader.
func New(reader PageReader, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{reader: reader, log: log}
}

// ExtractPDF reads the PDF and extracts its fields. Unreadable PDFs yield
// empty Fields.
func (e *Extractor) ExtractPDF(data []byte) (fields Fields) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("pdf text extraction aborted", zap.Any("panic", rec))
			fields = Fields{}
		}
	}()

	pages, err := e.reader.ReadPages(data)
	if err != nil {
		e.log.Warn("pdf text extraction failed", zap.Error(err))
		return Fields{}
	}
	return e.Extract(pages)
}

// Extract normalizes the page blocks and applies the field patterns in order.
func (e *Extractor) Extract(pages pdf.Pages) (fields Fields) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Error("field extraction aborted", zap.Any("panic", rec))
			fields = Fields{}
		}
	}()

	text := Normalize(pages)
	e.log.Debug("normalized text", zap.String("text", text))

	var bareNumber, year string

	if m := typeNumberPattern.FindStringSubmatch(text); m != nil {
		fields.Type = strings.ToUpper(strings.TrimSpace(m[1]))
		bareNumber = m[2]
	} else {
		e.log.Debug("no bill type phrase found")
	}

	if m := datePattern.FindStringSubmatch(text); m != nil {
		fields.Date = strings.TrimSpace(m[0])
		year = m[1]
	} else {
		e.log.Debug("no date phrase found")
	}

	if m := summaryPattern.FindStringSubmatch(text); m != nil {
		fields.Summary = `"` + summaryCorrections.Replace(strings.TrimSpace(m[1])) + `"`
	} else {
		e.log.Debug("no summary clause found")
	}

	if bareNumber != "" && year != "" {
		number, err := CanonicalNumber(bareNumber, year)
		if err != nil {
			e.log.Warn("bill number not canonicalized", zap.String("number", bareNumber), zap.Error(err))
		} else {
			fields.Number = number
		}
	}

	e.log.Info("fields extracted",
		zap.Bool("type", fields.Type != ""),
		zap.Bool("number", fields.Number != ""),
		zap.Bool("date", fields.Date != ""),
		zap.Bool("summary", fields.Summary != ""),
	)
	return fields
}

// Normalize joins every block with a space and collapses whitespace runs,
// line breaks included, into single spaces.
func Normalize(pages pdf.Pages) string {
	var sb strings.Builder
	for _, page := range pages {
		for _, block := range page {
			sb.WriteString(block)
			sb.WriteByte(' ')
		}
	}
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(sb.String(), " "))
}

// CanonicalNumber formats a bare bill number and year as NNN/YYYY.
func CanonicalNumber(number, year string) (string, error) {
	n, err := strconv.Atoi(number)
	if err != nil {
		return "", fmt.Errorf("invalid bill number %q: %w", number, err)
	}
	if len(year) != 4 {
		return "", fmt.Errorf("invalid year %q", year)
	}
	return fmt.Sprintf("%03d/%s", n, year), nil
}
