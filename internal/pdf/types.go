package pdf

// Pages is the extractable text of a document: one slice of text blocks per
// page, in reading order.
type Pages [][]string

// BlockCount returns the number of text blocks across all pages.
func (p Pages) BlockCount() int {
	n := 0
	for _, page := range p {
		n += len(page)
	}
	return n
}

// InspectResult describes an uploaded PDF after validation.
type InspectResult struct {
	Name  string `json:"name"`
	Size  int64  `json:"size"`
	Pages int    `json:"pages"`
}
