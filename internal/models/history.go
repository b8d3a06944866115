package models

// HistoryTimeLayout is the layout of HistoryRecord.GeneratedAt.
const HistoryTimeLayout = "02/01/2006 15:04:05"

// HistoryRecord is one generated opinion document. Records are append-only.
type HistoryRecord struct {
	ID            int64  `json:"id"`
	PDFName       string `json:"pdf_name"`
	DocxName      string `json:"docx_name"`
	ProjectNumber string `json:"numero_projeto"`
	GeneratedAt   string `json:"data_geracao"`
}
