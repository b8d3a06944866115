package merge

// Key names a template placeholder. Templates spell it as {{KEY}}.
type Key string

const (
	KeyBillType          Key = "TIPO_PROJETO"
	KeyBillNumber        Key = "NUMERO_PROJETO"
	KeyBillDate          Key = "DATA_PROJETO"
	KeySummary           Key = "EMENTA"
	KeyAuthorship        Key = "AUTORIA"
	KeyProtocolDate      Key = "DATA_PROTOCOLO"
	KeyUrgency           Key = "REGIME_URGENCIA"
	KeyPresentation      Key = "TEXTO_APRESENTACAO"
	KeyOpinionNumber     Key = "NUMERO_PARECER"
	KeyOpinionDate       Key = "DATA_PARECER_EXTENSO"
	KeyCommitteeName     Key = "NOME_DA_COMISSAO"
	KeyRapporteurName    Key = "NOME_RELATOR"
	KeyRapporteurRole    Key = "CARGO_RELATOR"
	KeyCosigner1Name     Key = "NOME_SIGNATARIO_1"
	KeyCosigner1Role     Key = "CARGO_SIGNATARIO_1"
	KeyCosigner2Name     Key = "NOME_SIGNATARIO_2"
	KeyCosigner2Role     Key = "CARGO_SIGNATARIO_2"
)

// Keys is the closed placeholder set in substitution order.
var Keys = []Key{
	KeyBillType,
	KeyBillNumber,
	KeyBillDate,
	KeySummary,
	KeyAuthorship,
	KeyProtocolDate,
	KeyUrgency,
	KeyPresentation,
	KeyOpinionNumber,
	KeyOpinionDate,
	KeyCommitteeName,
	KeyRapporteurName,
	KeyRapporteurRole,
	KeyCosigner1Name,
	KeyCosigner1Role,
	KeyCosigner2Name,
	KeyCosigner2Role,
}

var known = func() map[Key]bool {
	m := make(map[Key]bool, len(Keys))
	for _, k := range Keys {
		m[k] = true
	}
	return m
}()

// Token returns the literal placeholder text, e.g. {{EMENTA}}.
func (k Key) Token() string {
	return "{{" + string(k) + "}}"
}

// Valid reports whether k belongs to the placeholder set.
func (k Key) Valid() bool {
	return known[k]
}
