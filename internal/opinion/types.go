package opinion

import (
	"context"
	"errors"

	"github.com/legisdoc/parecer/internal/models"
)

// ErrInvalidRequest marks input problems that abort the whole batch.
var ErrInvalidRequest = errors.New("invalid generation request")

const (
	// UrgencyPhrase is rendered when the bill is under urgency.
	UrgencyPhrase = "EM REGIME DE URGÊNCIA,"
	// PresentationPhrase prefixes the session date when presentation is included.
	PresentationPhrase = " e apresentada como objeto de deliberação na sessão ordinária do dia "
	// NoPresentation closes the sentence when there is no presentation session.
	NoPresentation = "."
	// DefaultNumber stands in for an empty bill number in file names.
	DefaultNumber = "00-0000"
	// MaxCosigners is the number of co-signer slots a template exposes.
	MaxCosigners = 2
)

// Store is the data the generator needs from persistence.
type Store interface {
	CommitteeByCode(ctx context.Context, code string) (*models.Committee, error)
	MembersOf(ctx context.Context, committeeID int64) ([]models.Member, error)
	RecordGeneration(ctx context.Context, rec *models.HistoryRecord) error
}

// Request carries the reviewed bill fields and the committees to generate for.
type Request struct {
	PDFName          string      `json:"pdf_filename"`
	BillType         string      `json:"tipo_projeto"`
	BillNumber       string      `json:"numero_projeto"`
	BillDate         string      `json:"data_projeto"`
	Summary          string      `json:"ementa"`
	Authorship       string      `json:"autoria"`
	ProtocolDate     string      `json:"data_protocolo"`
	Urgent           bool        `json:"regime_urgencia"`
	Presentation     bool        `json:"incluir_apresentacao"`
	PresentationDate string      `json:"data_apresentacao"`
	Selections       []Selection `json:"comissoes"`
}

// Selection is one committee of the batch.
type Selection struct {
	Code          string `json:"sigla"`
	RapporteurID  int64  `json:"relator_id"`
	OpinionNumber string `json:"num_parecer"`
	OpinionDate   string `json:"data_parecer"`
}

// SkipReason explains why a committee produced no document.
type SkipReason string

const (
	SkipTemplateMissing     SkipReason = "template not found"
	SkipUnknownCommittee    SkipReason = "committee not found"
	SkipRapporteurMissing   SkipReason = "no rapporteur selected"
	SkipRapporteurNotMember SkipReason = "rapporteur is not a member of the committee"
)

// Outcome is the result for one committee: a generated file or a skip reason.
type Outcome struct {
	Code   string     `json:"committee"`
	File   string     `json:"file,omitempty"`
	Reason SkipReason `json:"skipped,omitempty"`
}

// Generated reports whether a document was produced.
func (o Outcome) Generated() bool {
	return o.File != ""
}

// BatchResult aggregates the outcomes of one request in selection order.
type BatchResult struct {
	Outcomes []Outcome `json:"outcomes"`
}

// Files lists the generated file names.
func (b *BatchResult) Files() []string {
	files := []string{}
	for _, o := range b.Outcomes {
		if o.Generated() {
			files = append(files, o.File)
		}
	}
	return files
}

// Empty reports whether no document was produced.
func (b *BatchResult) Empty() bool {
	return len(b.Files()) == 0
}
