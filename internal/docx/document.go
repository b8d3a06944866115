package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
)

// MainPart is the package path of the document body.
const MainPart = "word/document.xml"

// ErrNotDocx is returned when the input is not a WordprocessingML package.
var ErrNotDocx = errors.New("not a docx document")

var headerFooterPart = regexp.MustCompile(`^word/(header|footer)\d*\.xml$`)

// Document is an opened .docx package. Parts lists the body first, then
// headers and footers in archive order.
type Document struct {
	Parts []*Part

	zr     *zip.Reader
	byName map[string]*Part
}

// Open reads and parses the .docx file at path.
func Open(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Read(data)
}

// Read parses a .docx package held in memory.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotDocx, err)
	}

	doc := &Document{zr: zr, byName: make(map[string]*Part)}

	var main *zip.File
	var extra []*zip.File
	for _, f := range zr.File {
		switch {
		case f.Name == MainPart:
			main = f
		case headerFooterPart.MatchString(f.Name):
			extra = append(extra, f)
		}
	}
	if main == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrNotDocx, MainPart)
	}

	for _, f := range append([]*zip.File{main}, extra...) {
		part, err := readPart(f)
		if err != nil {
			return nil, err
		}
		if f == main && !part.hasBody {
			return nil, fmt.Errorf("%w: %s has no WordprocessingML body", ErrNotDocx, MainPart)
		}
		doc.Parts = append(doc.Parts, part)
		doc.byName[f.Name] = part
	}

	return doc, nil
}

func readPart(f *zip.File) (*Part, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return parsePart(f.Name, data)
}

// Body returns the main document body.
func (d *Document) Body() *Body {
	return d.Parts[0].Body
}

// Write serializes the package. Entries without changes are copied verbatim.
func (d *Document) Write(w io.Writer) error {
	zw := zip.NewWriter(w)

	for _, f := range d.zr.File {
		part := d.byName[f.Name]
		if part == nil || !part.Modified() {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}

		data, err := part.render()
		if err != nil {
			return fmt.Errorf("render %s: %w", f.Name, err)
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return fmt.Errorf("create %s: %w", f.Name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", f.Name, err)
		}
	}

	return zw.Close()
}

// Save writes the package to path.
func (d *Document) Save(path string) error {
	var buf bytes.Buffer
	if err := d.Write(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
