// Package merge substitutes {{KEY}} placeholders in .docx documents without
// disturbing run formatting.
package merge

import (
	"strings"

	"github.com/legisdoc/parecer/internal/docx"
)

// ReplaceInParagraph replaces the first occurrence of token in p with value.
// A token held by a single run is replaced inside that run. A token split
// across runs is collapsed into the run where it starts: that run keeps its
// prefix followed by value, the runs it leaked into lose the leaked
// fragment, and no run is removed.
func ReplaceInParagraph(p *docx.Paragraph, token, value string) bool {
	if token == "" {
		return false
	}
	full := p.Text()
	idx := strings.Index(full, token)
	if idx < 0 {
		return false
	}

	for _, r := range p.Runs {
		if t := r.Text(); strings.Contains(t, token) {
			r.SetText(strings.Replace(t, token, value, 1))
			return true
		}
	}

	end := idx + len(token)
	offset := 0
	first := true
	for _, r := range p.Runs {
		t := r.Text()
		runStart, runEnd := offset, offset+len(t)
		offset = runEnd
		if runEnd <= idx || runStart >= end {
			continue
		}

		lo := max(idx, runStart) - runStart
		hi := min(end, runEnd) - runStart
		if first {
			r.SetText(t[:lo] + value + t[hi:])
			first = false
		} else {
			r.SetText(t[:lo] + t[hi:])
		}
	}
	return true
}

// ApplyParagraph runs every key of ctx over p in order and returns the number
// of substitutions made.
func ApplyParagraph(p *docx.Paragraph, ctx *Context) int {
	n := 0
	for _, k := range Keys {
		if ReplaceInParagraph(p, k.Token(), ctx.Value(k)) {
			n++
		}
	}
	return n
}

// Apply substitutes ctx into every paragraph of every part of doc, including
// paragraphs nested in table cells, and returns the number of substitutions.
func Apply(doc *docx.Document, ctx *Context) int {
	n := 0
	for _, part := range doc.Parts {
		n += applyBlocks(part.Body.Blocks, ctx)
	}
	return n
}

func applyBlocks(blocks []docx.Block, ctx *Context) int {
	n := 0
	for _, b := range blocks {
		switch v := b.(type) {
		case *docx.Paragraph:
			n += ApplyParagraph(v, ctx)
		case *docx.Table:
			for _, row := range v.Rows {
				for _, cell := range row.Cells {
					n += applyBlocks(cell.Blocks, ctx)
				}
			}
		}
	}
	return n
}
