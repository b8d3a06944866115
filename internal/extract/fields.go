package extract

// Field names as they appear in templates and in the review form.
const (
	FieldType    = "TIPO_PROJETO"
	FieldNumber  = "NUMERO_PROJETO"
	FieldDate    = "DATA_PROJETO"
	FieldSummary = "EMENTA"
)

// Fields is the structured result of one extraction. Every field is
// optional; an empty string means the pattern did not match and the value is
// left for the reviewer to fill in.
type Fields struct {
	Type    string `json:"TIPO_PROJETO,omitempty"`
	Number  string `json:"NUMERO_PROJETO,omitempty"`
	Date    string `json:"DATA_PROJETO,omitempty"`
	Summary string `json:"EMENTA,omitempty"`
}

// Map returns only the populated fields, keyed by field name.
func (f Fields) Map() map[string]string {
	m := make(map[string]string, 4)
	for k, v := range map[string]string{
		FieldType:    f.Type,
		FieldNumber:  f.Number,
		FieldDate:    f.Date,
		FieldSummary: f.Summary,
	} {
		if v != "" {
			m[k] = v
		}
	}
	return m
}

// IsEmpty reports whether nothing was extracted.
func (f Fields) IsEmpty() bool {
	return f == Fields{}
}
