package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/legisdoc/parecer/internal/docx"
	"github.com/legisdoc/parecer/internal/docx/docxtest"
	"github.com/legisdoc/parecer/internal/extract"
	"github.com/legisdoc/parecer/internal/models"
	"github.com/legisdoc/parecer/internal/opinion"
	"github.com/legisdoc/parecer/internal/pdf"
	"github.com/legisdoc/parecer/internal/pdf/pdftest"
	"github.com/legisdoc/parecer/internal/security"
	"github.com/legisdoc/parecer/internal/storage"
)

type testServer struct {
	router    *gin.Engine
	store     *storage.Store
	uploads   string
	templates string
	generated string
	logs      *observer.ObservedLogs
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := storage.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Bootstrap(context.Background(), db, "sqlite3"))
	store := storage.NewStore(db)

	ts := &testServer{
		store:     store,
		uploads:   t.TempDir(),
		templates: t.TempDir(),
		generated: t.TempDir(),
	}

	uploads, err := security.NewPathValidator(ts.uploads)
	require.NoError(t, err)
	generated, err := security.NewPathValidator(ts.generated)
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)
	ts.logs = logs

	const maxSize = 1024 * 1024
	h := NewHandler(Deps{
		Store:     store,
		Extractor: extract.New(pdf.NewReader(maxSize), log),
		Generator: opinion.NewGenerator(store, ts.templates, ts.generated, log),
		Validator: pdf.NewValidator(maxSize),
		Uploads:   uploads,
		Generated: generated,
		Log:       log,
	})
	ts.router = NewRouter(h, log)
	return ts
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) doJSON(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, req)
}

func (ts *testServer) addMember(t *testing.T, code, name, role string) models.Member {
	t.Helper()
	ctx := context.Background()
	c, err := ts.store.CommitteeByCode(ctx, code)
	require.NoError(t, err)
	m := &models.Member{Name: name, Role: role, CommitteeID: c.ID}
	require.NoError(t, ts.store.Members.Create(ctx, m))
	return *m
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func uploadRequest(t *testing.T, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func generateRequest(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestUpload_ExtractsFieldsAndListsCommittees(t *testing.T) {
	ts := newTestServer(t)
	ts.addMember(t, "CFO", "Ana Lima", "Presidente")

	data := pdftest.Build(
		"PROJETO DE LEI ORDINARIA No 45",
		"de 12 de marco de 2025",
	)
	rec := ts.do(t, uploadRequest(t, "projeto.pdf", data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Filename   string                        `json:"filename"`
		Pages      int                           `json:"pages"`
		Fields     extract.Fields                `json:"fields"`
		Committees []models.CommitteeWithMembers `json:"committees"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "projeto.pdf", body.Filename)
	assert.Equal(t, 1, body.Pages)
	assert.Equal(t, "045/2025", body.Fields.Number)
	assert.Equal(t, "12 de marco de 2025", body.Fields.Date)
	require.Len(t, body.Committees, len(storage.DefaultCommittees))
	assert.Equal(t, "CFO", body.Committees[1].Code)
	require.Len(t, body.Committees[1].Members, 1)
	assert.Empty(t, body.Committees[0].Members)

	stored, err := os.ReadFile(filepath.Join(ts.uploads, "projeto.pdf"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestUpload_Rejections(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		file   string
		data   []byte
		status int
	}{
		{name: "not a pdf name", file: "projeto.docx", data: []byte("x"), status: http.StatusBadRequest},
		{name: "empty file", file: "projeto.pdf", data: nil, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, uploadRequest(t, tt.file, tt.data))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	entries, err := os.ReadDir(ts.uploads)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUpload_MalformedPDFKeepsFileWithEmptyFields(t *testing.T) {
	ts := newTestServer(t)
	data := []byte("%PDF-1.4\nnot really a pdf")

	rec := ts.do(t, uploadRequest(t, "projeto.pdf", data))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Filename   string                        `json:"filename"`
		Pages      int                           `json:"pages"`
		Fields     extract.Fields                `json:"fields"`
		Committees []models.CommitteeWithMembers `json:"committees"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "projeto.pdf", body.Filename)
	assert.Equal(t, 0, body.Pages)
	assert.True(t, body.Fields.IsEmpty())
	assert.Len(t, body.Committees, len(storage.DefaultCommittees))

	stored, err := os.ReadFile(filepath.Join(ts.uploads, "projeto.pdf"))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, 1, ts.logs.FilterMessage("pdf failed structural validation").Len())
}

func TestUpload_MissingFile(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", nil)
	rec := ts.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func writeTemplate(t *testing.T, dir, code string) {
	t.Helper()
	xml := docxtest.Document(
		docxtest.Paragraph("PARECER ", "{{NUMERO_PARECER}}", " - {{NOME_DA_COMISSAO}}"),
		docxtest.Paragraph("{{NOME_REL", "ATOR}}", " / ", "{{NOME_SIGNATARIO_1}}"),
	)
	path := filepath.Join(dir, "template_"+code+".docx")
	require.NoError(t, os.WriteFile(path, docxtest.Build(xml, nil), 0o644))
}

func TestGenerate_ProducesDocumentsAndHistory(t *testing.T) {
	ts := newTestServer(t)
	writeTemplate(t, ts.templates, "cfo")
	ana := ts.addMember(t, "CFO", "Ana Lima", "Presidente")
	ts.addMember(t, "CFO", "João Souza", "Membro")
	rita := ts.addMember(t, "CJR", "Rita Alves", "Presidente")

	form := url.Values{
		"pdf_filename":         {"projeto.pdf"},
		"tipo_projeto":         {"PROJETO DE LEI ORDINÁRIA"},
		"numero_projeto":       {"045/2025"},
		"data_protocolo":       {"2025-03-10"},
		"data_parecer":         {"2025-03-05"},
		"comissao_selecionada": {"CJR", "CFO"},
		"relator_CJR":          {itoa(rita.ID)},
		"relator_CFO":          {itoa(ana.ID)},
		"num_parecer_CFO":      {"07/2025"},
	}
	rec := ts.do(t, generateRequest(form))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Files    []string          `json:"files"`
		Outcomes []opinion.Outcome `json:"outcomes"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []string{"Parecer_CFO_045-2025.docx"}, body.Files)
	assert.Equal(t, []opinion.Outcome{
		{Code: "CJR", Reason: opinion.SkipTemplateMissing},
		{Code: "CFO", File: "Parecer_CFO_045-2025.docx"},
	}, body.Outcomes)

	doc, err := docx.Open(filepath.Join(ts.generated, body.Files[0]))
	require.NoError(t, err)
	paras := doc.Body().Paragraphs()
	assert.Equal(t, "PARECER 07/2025 - COMISSÃO DE FINANÇAS E ORÇAMENTO", paras[0].Text())
	assert.Equal(t, []string{"ANA LIMA", "", " / ", "JOÃO SOUZA"}, paras[1].Texts())

	hist := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, hist.Code)
	var history struct {
		History []models.HistoryRecord `json:"history"`
	}
	decode(t, hist, &history)
	require.Len(t, history.History, 1)
	assert.Equal(t, "projeto.pdf", history.History[0].PDFName)
	assert.Equal(t, "045/2025", history.History[0].ProjectNumber)

	dl := ts.do(t, httptest.NewRequest(http.MethodGet, "/api/download/Parecer_CFO_045-2025.docx", nil))
	require.Equal(t, http.StatusOK, dl.Code)
	assert.Contains(t, dl.Header().Get("Content-Disposition"), "Parecer_CFO_045-2025.docx")
	_, err = docx.Read(dl.Body.Bytes())
	assert.NoError(t, err)
}

func TestGenerate_NothingProducedIsUnprocessable(t *testing.T) {
	ts := newTestServer(t)
	writeTemplate(t, ts.templates, "cfo")

	form := url.Values{
		"numero_projeto":       {"045/2025"},
		"comissao_selecionada": {"CFO"},
	}
	rec := ts.do(t, generateRequest(form))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "generation failed")
	assert.Contains(t, rec.Body.String(), string(opinion.SkipRapporteurMissing))
}

func TestGenerate_BadInput(t *testing.T) {
	ts := newTestServer(t)
	writeTemplate(t, ts.templates, "cfo")
	ana := ts.addMember(t, "CFO", "Ana Lima", "Presidente")

	tests := []struct {
		name string
		form url.Values
	}{
		{name: "no committee", form: url.Values{"numero_projeto": {"1/2025"}}},
		{name: "bad rapporteur id", form: url.Values{"comissao_selecionada": {"CFO"}, "relator_CFO": {"ana"}}},
		{name: "bad date", form: url.Values{
			"comissao_selecionada": {"CFO"},
			"relator_CFO":          {itoa(ana.ID)},
			"data_protocolo":       {"10/03/2025"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, generateRequest(tt.form))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	entries, err := os.ReadDir(ts.generated)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParseGenerateForm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	form := url.Values{
		"pdf_filename":         {"../uploads/projeto.pdf"},
		"regime_urgencia":      {""},
		"data_parecer":         {"2025-03-05"},
		"data_parecer_CJR":     {"2025-03-07"},
		"comissao_selecionada": {"CFO", "CJR"},
		"relator_CFO":          {"3"},
		"num_parecer_CJR":      {" 2/2025 "},
	}
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = generateRequest(form)

	req, err := parseGenerateForm(c)
	require.NoError(t, err)
	assert.Equal(t, "projeto.pdf", req.PDFName)
	assert.True(t, req.Urgent)
	assert.False(t, req.Presentation)
	assert.Equal(t, []opinion.Selection{
		{Code: "CFO", RapporteurID: 3, OpinionDate: "2025-03-05"},
		{Code: "CJR", OpinionNumber: "2/2025", OpinionDate: "2025-03-07"},
	}, req.Selections)
}

func TestDownload(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(ts.generated, "a.docx"), []byte("doc"), 0o644))

	tests := []struct {
		path   string
		status int
	}{
		{path: "/api/download/a.docx", status: http.StatusOK},
		{path: "/api/download/missing.docx", status: http.StatusNotFound},
		{path: "/api/download/..", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := ts.do(t, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCommitteeAndMemberManagement(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.doJSON(t, http.MethodPost, "/api/committees", committeeRequest{Name: "Comissão de Meio Ambiente", Code: "cma"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var committee models.Committee
	decode(t, rec, &committee)
	assert.Equal(t, "CMA", committee.Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/committees", committeeRequest{Name: "Outra", Code: "CMA"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.doJSON(t, http.MethodPost, "/api/committees", committeeRequest{Name: "", Code: "X"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	path := "/api/committees/" + itoa(committee.ID)
	rec = ts.doJSON(t, http.MethodPut, path, committeeRequest{Name: "Comissão de Meio Ambiente e Turismo", Code: "CMAT"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.doJSON(t, http.MethodPost, path+"/members", memberRequest{Name: "Ana Lima", Role: "Presidente"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var member models.Member
	decode(t, rec, &member)
	assert.Equal(t, committee.ID, member.CommitteeID)

	rec = ts.doJSON(t, http.MethodPut, "/api/members/"+itoa(member.ID), memberRequest{Name: "Ana Lima", Role: "Relatora"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.doJSON(t, http.MethodGet, path+"/members", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members struct {
		Members []models.Member `json:"members"`
	}
	decode(t, rec, &members)
	require.Len(t, members.Members, 1)
	assert.Equal(t, "Relatora", members.Members[0].Role)

	rec = ts.doJSON(t, http.MethodGet, "/api/committees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CMAT")

	rec = ts.doJSON(t, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.doJSON(t, http.MethodDelete, "/api/members/"+itoa(member.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.doJSON(t, http.MethodGet, path+"/members", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.doJSON(t, http.MethodPut, "/api/committees/abc", committeeRequest{Name: "x", Code: "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndRequestLogging(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	rec := ts.do(t, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

	entries := ts.logs.FilterMessage("request").All()
	require.NotEmpty(t, entries)
	ctx := entries[len(entries)-1].ContextMap()
	assert.Equal(t, "/healthz", ctx["path"])
	assert.Equal(t, "req-123", ctx["request_id"])
	assert.EqualValues(t, http.StatusOK, ctx["status"])
}
