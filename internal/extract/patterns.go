package extract

import (
	"regexp"
	"strings"
)

// Bill type phrases. Accented letters also accept their unaccented OCR form.
var billTypes = []string{
	`PROJETO DE LEI ORDIN[AÁ]RIA`,
	`PROJETO DE LEI COMPLEMENTAR`,
	`PROJETO DE RESOLU[CÇ][AÃ]O`,
	`PROJETO DE DECRETO LEGISLATIVO`,
	`PROPOSTA DE EMENDA [AÀ] LEI ORG[AÂ]NICA(?: MUNICIPAL)?`,
}

var (
	// The number is anchored to the type phrase: "Nº" markers elsewhere in
	// the text (article numbers, cited laws) must not be picked up. The
	// marker is required. OCR readings of "º" (9, o, e, q and ') only count
	// directly against the N; "º" and "°" may follow a dot or space. Without
	// a marker the type is kept and the number left empty.
	typeNumberPattern = regexp.MustCompile(
		`(?i)(` + strings.Join(billTypes, "|") + `)(?:\s*N(?:[o9eq']|\s*\.?\s*[º°])\s*\.?\s*(\d+))?`,
	)

	// "12 de março de 2025"; OCR sometimes reads the second "de" as "oe".
	datePattern = regexp.MustCompile(`(?i)\b\d{1,2}\s+de\s+\p{L}+\s+(?:de|oe)\s+(\d{4})\b`)

	// The summary of budget bills: a quoted clause opening with "Abre" and
	// running through "Anual", plus whatever follows up to the closing quote.
	summaryPattern = regexp.MustCompile(`(?is)["“”]\s*(Abre[^"“”]*?Anual[^"“”]*?)\s*["“”]`)

	whitespacePattern = regexp.MustCompile(`[\s\p{Z}]+`)
)

// Recurring OCR misreads in the summary phrase family.
var summaryCorrections = strings.NewReplacer(
	"Í", "i",
	"çá", "çã",
	"ôe", "õe",
)
