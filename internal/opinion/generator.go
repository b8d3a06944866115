// Package opinion generates committee opinion documents from reviewed bill
// fields, one document per selected committee.
package opinion

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/docx"
	"github.com/legisdoc/parecer/internal/merge"
	"github.com/legisdoc/parecer/internal/models"
	"github.com/legisdoc/parecer/internal/storage"
)

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// Generator fills per-committee templates and records each produced file.
type Generator struct {
	store       Store
	templateDir string
	outputDir   string
	log         *zap.Logger
	now         func() time.Time
}

// NewGenerator creates a generator reading templates from templateDir and
// writing documents to outputDir.
func NewGenerator(store Store, templateDir, outputDir string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		store:       store,
		templateDir: templateDir,
		outputDir:   outputDir,
		log:         log,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for history timestamps.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// TemplatePath returns the template file for a committee code.
func (g *Generator) TemplatePath(code string) string {
	return filepath.Join(g.templateDir, "template_"+strings.ToLower(code)+".docx")
}

// OutputName returns the document file name for a committee and bill number.
func OutputName(code, billNumber string) string {
	number := strings.TrimSpace(billNumber)
	if number == "" {
		number = DefaultNumber
	}
	number = strings.ReplaceAll(number, "/", "-")
	number = strings.Trim(unsafeFileChars.ReplaceAllString(number, "-"), ".")
	if number == "" {
		number = DefaultNumber
	}
	return fmt.Sprintf("Parecer_%s_%s.docx", code, number)
}

// plan is a validated selection with its dates parsed.
type plan struct {
	Selection
	opinionDate time.Time
}

// Generate produces one document per selection. Selections that cannot be
// served are reported as skipped outcomes; an error aborts the whole batch.
// Every date is validated before any document is written.
func (g *Generator) Generate(ctx context.Context, req Request) (*BatchResult, error) {
	base, plans, err := g.prepare(req)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Outcomes: make([]Outcome, 0, len(plans))}
	for _, p := range plans {
		outcome, err := g.generateOne(ctx, req, base, p)
		if err != nil {
			return nil, fmt.Errorf("committee %s: %w", p.Code, err)
		}
		if outcome.Generated() {
			g.log.Info("opinion generated", zap.String("committee", p.Code), zap.String("file", outcome.File))
		} else {
			g.log.Warn("committee skipped", zap.String("committee", p.Code), zap.String("reason", string(outcome.Reason)))
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	g.log.Debug("batch finished",
		zap.Int("selected", len(plans)),
		zap.Int("generated", len(result.Files())))
	return result, nil
}

// prepare parses dates and builds the request-level placeholder values.
func (g *Generator) prepare(req Request) (map[merge.Key]string, []plan, error) {
	protocol, err := parseDate("data_protocolo", req.ProtocolDate)
	if err != nil {
		return nil, nil, err
	}
	presentation, err := parseDate("data_apresentacao", req.PresentationDate)
	if err != nil {
		return nil, nil, err
	}

	base := map[merge.Key]string{
		merge.KeyBillType:     req.BillType,
		merge.KeyBillNumber:   req.BillNumber,
		merge.KeyBillDate:     req.BillDate,
		merge.KeySummary:      req.Summary,
		merge.KeyAuthorship:   req.Authorship,
		merge.KeyProtocolDate: shortDate(protocol),
		merge.KeyPresentation: NoPresentation,
	}
	if req.Urgent {
		base[merge.KeyUrgency] = UrgencyPhrase
	}
	if req.Presentation && !presentation.IsZero() {
		base[merge.KeyPresentation] = PresentationPhrase + shortDate(presentation)
	}
	if _, err := merge.NewContext(base); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	seen := make(map[string]bool, len(req.Selections))
	plans := make([]plan, 0, len(req.Selections))
	for _, sel := range req.Selections {
		sel.Code = strings.ToUpper(strings.TrimSpace(sel.Code))
		if sel.Code == "" || seen[sel.Code] {
			continue
		}
		seen[sel.Code] = true

		date, err := parseDate("data_parecer_"+sel.Code, sel.OpinionDate)
		if err != nil {
			return nil, nil, err
		}
		if _, err := merge.NewContext(map[merge.Key]string{merge.KeyOpinionNumber: sel.OpinionNumber}); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		plans = append(plans, plan{Selection: sel, opinionDate: date})
	}

	return base, plans, nil
}

func (g *Generator) generateOne(ctx context.Context, req Request, base map[merge.Key]string, p plan) (Outcome, error) {
	outcome := Outcome{Code: p.Code}

	templatePath := g.TemplatePath(p.Code)
	if _, err := os.Stat(templatePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			outcome.Reason = SkipTemplateMissing
			return outcome, nil
		}
		return outcome, fmt.Errorf("stat template: %w", err)
	}

	committee, err := g.store.CommitteeByCode(ctx, p.Code)
	if errors.Is(err, storage.ErrNotFound) {
		outcome.Reason = SkipUnknownCommittee
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("load committee: %w", err)
	}

	if p.RapporteurID <= 0 {
		outcome.Reason = SkipRapporteurMissing
		return outcome, nil
	}
	members, err := g.store.MembersOf(ctx, committee.ID)
	if err != nil {
		return outcome, fmt.Errorf("load members: %w", err)
	}
	rapporteur, cosigners := splitMembers(members, p.RapporteurID)
	if rapporteur == nil {
		outcome.Reason = SkipRapporteurNotMember
		return outcome, nil
	}

	values := make(map[merge.Key]string, len(merge.Keys))
	for k, v := range base {
		values[k] = v
	}
	values[merge.KeyOpinionNumber] = p.OpinionNumber
	values[merge.KeyOpinionDate] = longDate(p.opinionDate)
	values[merge.KeyCommitteeName] = strings.ToUpper(committee.Name)
	values[merge.KeyRapporteurName] = strings.ToUpper(rapporteur.Name)
	values[merge.KeyRapporteurRole] = rapporteur.Role
	cosignerKeys := [MaxCosigners][2]merge.Key{
		{merge.KeyCosigner1Name, merge.KeyCosigner1Role},
		{merge.KeyCosigner2Name, merge.KeyCosigner2Role},
	}
	for i, keys := range cosignerKeys {
		if i < len(cosigners) {
			values[keys[0]] = strings.ToUpper(cosigners[i].Name)
			values[keys[1]] = cosigners[i].Role
		}
	}

	mctx, err := merge.NewContext(values)
	if err != nil {
		return outcome, err
	}

	doc, err := docx.Open(templatePath)
	if err != nil {
		return outcome, fmt.Errorf("open template: %w", err)
	}
	replaced := merge.Apply(doc, mctx)

	name := OutputName(p.Code, req.BillNumber)
	if err := doc.Save(filepath.Join(g.outputDir, name)); err != nil {
		return outcome, fmt.Errorf("save document: %w", err)
	}
	g.log.Debug("template merged",
		zap.String("template", templatePath),
		zap.Int("replacements", replaced))

	rec := &models.HistoryRecord{
		PDFName:       req.PDFName,
		DocxName:      name,
		ProjectNumber: req.BillNumber,
		GeneratedAt:   g.now().Format(models.HistoryTimeLayout),
	}
	if err := g.store.RecordGeneration(ctx, rec); err != nil {
		return outcome, fmt.Errorf("record history: %w", err)
	}

	outcome.File = name
	return outcome, nil
}

// splitMembers finds the rapporteur and returns the remaining members in
// their stored order.
func splitMembers(members []models.Member, rapporteurID int64) (*models.Member, []models.Member) {
	var rapporteur *models.Member
	others := make([]models.Member, 0, len(members))
	for i := range members {
		if members[i].ID == rapporteurID {
			rapporteur = &members[i]
			continue
		}
		others = append(others, members[i])
	}
	return rapporteur, others
}
