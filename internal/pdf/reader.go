package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Reader extracts text blocks from PDF content
type Reader struct {
	maxFileSize int64
	maxTextSize int
}

// NewReader creates a new PDF reader with the specified constraints
func NewReader(maxFileSize int64) *Reader {
	return &Reader{
		maxFileSize: maxFileSize,
		maxTextSize: 10 * 1024 * 1024, // 10MB text limit
	}
}

// ReadFile reads a PDF from disk and returns its text blocks
func (r *Reader) ReadFile(path string) (Pages, error) {
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if fileInfo.Size() > r.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), r.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return r.ReadPages(data)
}

// ReadPages parses PDF bytes and returns one slice of text blocks per page.
// A block is one text row as laid out by the PDF; pages whose rows cannot be
// recovered fall back to the page's plain text.
func (r *Reader) ReadPages(data []byte) (pages Pages, err error) {
	// ledongthuc/pdf panics on some malformed content streams
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("failed to parse PDF: %v", rec)
		}
	}()

	if int64(len(data)) > r.maxFileSize {
		return nil, fmt.Errorf("file too large: %d bytes (max: %d bytes)", len(data), r.maxFileSize)
	}

	pdfReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	totalLength := 0
	for pageNum := 1; pageNum <= pdfReader.NumPage(); pageNum++ {
		page := pdfReader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		blocks := r.pageBlocks(page)
		for i, block := range blocks {
			if totalLength+len(block) > r.maxTextSize {
				return append(pages, blocks[:i]), nil
			}
			totalLength += len(block)
		}
		pages = append(pages, blocks)
	}

	if pages.BlockCount() == 0 {
		return nil, fmt.Errorf("no text content could be extracted from PDF")
	}
	return pages, nil
}

func (r *Reader) pageBlocks(page pdf.Page) []string {
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		blocks := make([]string, 0, len(rows))
		for _, row := range rows {
			var sb strings.Builder
			for _, text := range row.Content {
				sb.WriteString(text.S)
			}
			if line := strings.TrimSpace(sb.String()); line != "" {
				blocks = append(blocks, line)
			}
		}
		if len(blocks) > 0 {
			return blocks
		}
	}

	content, err := page.GetPlainText(nil)
	if err != nil || strings.TrimSpace(content) == "" {
		return nil
	}
	return []string{content}
}
