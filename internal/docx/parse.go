package docx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// wordNS is the WordprocessingML main namespace. Parts usually bind it to
// "w", but any prefix (or the default namespace) is valid.
const wordNS = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

// Part is one XML part of the package (document body, header or footer).
type Part struct {
	Name string
	Body *Body

	data    []byte
	runs    []*Run // document order
	hasBody bool
}

// namespaces holds the xmlns declarations of every open element, innermost
// last. RawToken leaves prefixes unresolved, so lookups go through here.
type namespaces []map[string]string

func (ns *namespaces) push(attrs []xml.Attr) {
	var scope map[string]string
	for _, a := range attrs {
		prefix, ok := "", false
		switch {
		case a.Name.Space == "xmlns":
			prefix, ok = a.Name.Local, true
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			ok = true
		}
		if !ok {
			continue
		}
		if scope == nil {
			scope = make(map[string]string)
		}
		scope[prefix] = a.Value
	}
	*ns = append(*ns, scope)
}

func (ns *namespaces) pop() {
	if len(*ns) > 0 {
		*ns = (*ns)[:len(*ns)-1]
	}
}

func (ns namespaces) isWord(name xml.Name) bool {
	for i := len(ns) - 1; i >= 0; i-- {
		if uri, ok := ns[i][name.Space]; ok {
			return uri == wordNS
		}
	}
	return false
}

// parsePart scans the part token by token, recording the byte range of every
// w:t element so that edits can be spliced back without re-encoding the XML.
func parsePart(name string, data []byte) (*Part, error) {
	part := &Part{Name: name, Body: &Body{}, data: data}

	containers := []*[]Block{&part.Body.Blocks}
	var (
		paras  []*Paragraph
		tables []*Table
		run    *Run
		text   bytes.Buffer
	)

	var ns namespaces
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		start := dec.InputOffset()
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		end := dec.InputOffset()

		switch t := tok.(type) {
		case xml.StartElement:
			ns.push(t.Attr)
			if !ns.isWord(t.Name) {
				continue
			}
			top := containers[len(containers)-1]
			switch t.Name.Local {
			case "body":
				part.hasBody = true
			case "p":
				p := &Paragraph{}
				*top = append(*top, p)
				paras = append(paras, p)
			case "tbl":
				tbl := &Table{}
				*top = append(*top, tbl)
				tables = append(tables, tbl)
			case "tr":
				if len(tables) > 0 {
					tbl := tables[len(tables)-1]
					tbl.Rows = append(tbl.Rows, &Row{})
				}
			case "tc":
				cell := &Cell{}
				if len(tables) > 0 {
					tbl := tables[len(tables)-1]
					if len(tbl.Rows) > 0 {
						row := tbl.Rows[len(tbl.Rows)-1]
						row.Cells = append(row.Cells, cell)
					}
				}
				containers = append(containers, &cell.Blocks)
			case "t":
				if len(paras) > 0 {
					run = &Run{start: int(start), prefix: t.Name.Space}
					text.Reset()
				}
			}

		case xml.CharData:
			if run != nil {
				text.Write(t)
			}

		case xml.EndElement:
			word := ns.isWord(t.Name)
			ns.pop()
			if !word {
				continue
			}
			switch t.Name.Local {
			case "p":
				if len(paras) > 0 {
					paras = paras[:len(paras)-1]
				}
			case "tbl":
				if len(tables) > 0 {
					tables = tables[:len(tables)-1]
				}
			case "tc":
				if len(containers) > 1 {
					containers = containers[:len(containers)-1]
				}
			case "t":
				if run != nil {
					run.end = int(end)
					run.text = text.String()
					p := paras[len(paras)-1]
					p.Runs = append(p.Runs, run)
					part.runs = append(part.runs, run)
					run = nil
				}
			}
		}
	}

	return part, nil
}

// Modified reports whether any run of the part changed.
func (p *Part) Modified() bool {
	for _, r := range p.runs {
		if r.changed {
			return true
		}
	}
	return false
}

// render returns the part's XML with every changed w:t element rewritten.
func (p *Part) render() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(p.data))

	last := 0
	for _, r := range p.runs {
		if !r.changed {
			continue
		}
		tag := "t"
		if r.prefix != "" {
			tag = r.prefix + ":t"
		}
		buf.Write(p.data[last:r.start])
		fmt.Fprintf(&buf, `<%s xml:space="preserve">`, tag)
		if err := xml.EscapeText(&buf, []byte(r.text)); err != nil {
			return nil, fmt.Errorf("escape text: %w", err)
		}
		fmt.Fprintf(&buf, `</%s>`, tag)
		last = r.end
	}
	buf.Write(p.data[last:])
	return buf.Bytes(), nil
}
