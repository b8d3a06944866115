// Package docxtest builds minimal .docx packages for tests.
package docxtest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
	"strings"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"><Default Extension="xml" ContentType="application/xml"/><Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/></Types>`

const header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

// Namespace is the WordprocessingML main namespace declaration.
const Namespace = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// Paragraph renders a paragraph with one bold-alternating run per text.
func Paragraph(runs ...string) string {
	var sb strings.Builder
	sb.WriteString("<w:p>")
	for i, r := range runs {
		sb.WriteString("<w:r>")
		if i%2 == 1 {
			sb.WriteString("<w:rPr><w:b/></w:rPr>")
		}
		fmt.Fprintf(&sb, `<w:t xml:space="preserve">%s</w:t>`, escape(r))
		sb.WriteString("</w:r>")
	}
	sb.WriteString("</w:p>")
	return sb.String()
}

// Table renders a table; each cell holds the given block XML.
func Table(rows ...[]string) string {
	var sb strings.Builder
	sb.WriteString("<w:tbl><w:tblPr/>")
	for _, row := range rows {
		sb.WriteString("<w:tr>")
		for _, cell := range row {
			sb.WriteString("<w:tc><w:tcPr/>")
			sb.WriteString(cell)
			sb.WriteString("</w:tc>")
		}
		sb.WriteString("</w:tr>")
	}
	sb.WriteString("</w:tbl>")
	return sb.String()
}

// Document wraps body XML in a word/document.xml part.
func Document(body ...string) string {
	return header + `<w:document ` + Namespace + `><w:body>` + strings.Join(body, "") + `<w:sectPr/></w:body></w:document>`
}

// HeaderPart wraps paragraphs in a header part.
func HeaderPart(body ...string) string {
	return header + `<w:hdr ` + Namespace + `>` + strings.Join(body, "") + `</w:hdr>`
}

// Build zips documentXML plus any extra parts into a .docx package.
func Build(documentXML string, extra map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	write := func(name, content string) {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			panic(err)
		}
	}

	write("[Content_Types].xml", contentTypes)
	write("word/document.xml", documentXML)

	names := make([]string, 0, len(extra))
	for name := range extra {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		write(name, extra[name])
	}

	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(s)
}
