package descriptions

import "sort"

// Tool names exposed over MCP
const (
	ToolBillExtractFields = "bill_extract_fields"
	ToolOpinionGenerate   = "opinion_generate"
	ToolOpinionHistory    = "opinion_history"
	ToolCommitteeList     = "committee_list"
)

const (
	BillExtractFieldsDescription = `Extract the identifying fields of a municipal bill from its PDF.

**When to use:** A bill PDF was uploaded and its type, number, date and summary ("ementa") are needed to fill committee opinions.

**Returns:** TIPO_PROJETO, NUMERO_PROJETO (zero-padded, e.g. 045/2025), DATA_PROJETO and EMENTA. Fields whose pattern does not match are omitted; review them before generating.

**Examples:**
• "Extract the fields of projeto-45.pdf"
• "What is the bill number in uploads/pl-2025-12.pdf?"

**Best practices:** Pass a bare file name to read from the upload directory. Scanned PDFs without a text layer yield no fields.`

	OpinionGenerateDescription = `Generate committee opinion (.docx) documents for a bill, one per selected committee.

**When to use:** After the bill fields were extracted and reviewed, to produce the "pareceres" from each committee's template.

**Parameters:** bill fields (tipo_projeto, numero_projeto, data_projeto, ementa, autoria), data_protocolo (YYYY-MM-DD), regime_urgencia, incluir_apresentacao with data_apresentacao, data_parecer (default opinion date) and comissoes: a list of {sigla, relator_id, num_parecer, data_parecer}.

**Returns:** the generated file names and, for committees that were skipped, the reason (template missing, unknown committee, rapporteur missing or not a member).

**Best practices:** Call committee_list first to get member ids for relator_id.`

	OpinionHistoryDescription = `List previously generated opinion documents, newest first.

**When to use:** To find which opinions were already produced for a bill, or to recover a file name for download.`

	CommitteeListDescription = `List the standing committees with their codes and members.

**When to use:** Before opinion_generate, to choose committees (sigla) and rapporteurs (member id).`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	ToolBillExtractFields: BillExtractFieldsDescription,
	ToolOpinionGenerate:   OpinionGenerateDescription,
	ToolOpinionHistory:    OpinionHistoryDescription,
	ToolCommitteeList:     CommitteeListDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
