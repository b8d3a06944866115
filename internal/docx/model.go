package docx

import "strings"

// Block is a body-level element: a *Paragraph or a *Table.
type Block interface {
	block()
}

// Body is an ordered sequence of paragraphs and tables.
type Body struct {
	Blocks []Block
}

// Paragraph is an ordered sequence of text runs.
type Paragraph struct {
	Runs []*Run
}

// Table holds rows of cells; each cell is itself a sequence of blocks.
type Table struct {
	Rows []*Row
}

type Row struct {
	Cells []*Cell
}

type Cell struct {
	Blocks []Block
}

func (*Paragraph) block() {}
func (*Table) block()     {}

// Run is one text node of the document. Its formatting lives in the
// enclosing w:r element and is never touched; only the text changes.
type Run struct {
	text    string
	start   int
	end     int
	prefix  string // namespace prefix of the w:t element
	changed bool
}

// NewParagraph builds a detached paragraph, one run per text.
func NewParagraph(texts ...string) *Paragraph {
	p := &Paragraph{}
	for _, t := range texts {
		p.Runs = append(p.Runs, &Run{text: t, start: -1, end: -1})
	}
	return p
}

func (r *Run) Text() string {
	return r.text
}

// SetText replaces the run's text.
func (r *Run) SetText(text string) {
	if text == r.text {
		return
	}
	r.text = text
	r.changed = true
}

// Text concatenates the paragraph's runs.
func (p *Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.text)
	}
	return sb.String()
}

// Texts returns the text of each run.
func (p *Paragraph) Texts() []string {
	out := make([]string, len(p.Runs))
	for i, r := range p.Runs {
		out[i] = r.text
	}
	return out
}

// Paragraphs returns the body's top-level paragraphs.
func (b *Body) Paragraphs() []*Paragraph {
	return paragraphs(b.Blocks)
}

// Tables returns the body's top-level tables.
func (b *Body) Tables() []*Table {
	return tables(b.Blocks)
}

func (c *Cell) Paragraphs() []*Paragraph {
	return paragraphs(c.Blocks)
}

func (c *Cell) Tables() []*Table {
	return tables(c.Blocks)
}

func paragraphs(blocks []Block) []*Paragraph {
	var out []*Paragraph
	for _, b := range blocks {
		if p, ok := b.(*Paragraph); ok {
			out = append(out, p)
		}
	}
	return out
}

func tables(blocks []Block) []*Table {
	var out []*Table
	for _, b := range blocks {
		if t, ok := b.(*Table); ok {
			out = append(out, t)
		}
	}
	return out
}
