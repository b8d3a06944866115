// Package api exposes bill upload, opinion generation and committee
// management over HTTP.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/legisdoc/parecer/internal/extract"
	"github.com/legisdoc/parecer/internal/models"
	"github.com/legisdoc/parecer/internal/opinion"
	"github.com/legisdoc/parecer/internal/pdf"
	"github.com/legisdoc/parecer/internal/security"
	"github.com/legisdoc/parecer/internal/storage"
)

// FieldExtractor pulls bill fields out of PDF bytes.
type FieldExtractor interface {
	ExtractPDF(data []byte) extract.Fields
}

// OpinionGenerator runs one generation batch.
type OpinionGenerator interface {
	Generate(ctx context.Context, req opinion.Request) (*opinion.BatchResult, error)
}

// Handler wires HTTP routes to extraction, generation and storage.
type Handler struct {
	store     *storage.Store
	extractor FieldExtractor
	generator OpinionGenerator
	validator *pdf.Validator
	uploads   *security.PathValidator
	generated *security.PathValidator
	log       *zap.Logger
}

// Deps groups the collaborators of a Handler.
type Deps struct {
	Store     *storage.Store
	Extractor FieldExtractor
	Generator OpinionGenerator
	Validator *pdf.Validator
	Uploads   *security.PathValidator
	Generated *security.PathValidator
	Log       *zap.Logger
}

// NewHandler constructs a Handler instance.
func NewHandler(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		store:     d.Store,
		extractor: d.Extractor,
		generator: d.Generator,
		validator: d.Validator,
		uploads:   d.Uploads,
		generated: d.Generated,
		log:       log,
	}
}

// NewRouter builds a gin engine with request ids, zap logging, recovery and
// every route registered.
func NewRouter(h *Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Logger(log), gin.Recovery())
	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/healthz", h.health)

	api := router.Group("/api")
	api.POST("/upload", h.upload)
	api.POST("/generate", h.generate)
	api.GET("/download/:filename", h.download)
	api.GET("/history", h.history)

	api.GET("/committees", h.listCommittees)
	api.POST("/committees", h.createCommittee)
	api.PUT("/committees/:id", h.updateCommittee)
	api.DELETE("/committees/:id", h.deleteCommittee)
	api.GET("/committees/:id/members", h.listMembers)
	api.POST("/committees/:id/members", h.createMember)
	api.PUT("/members/:id", h.updateMember)
	api.DELETE("/members/:id", h.deleteMember)
}

func (h *Handler) health(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	name := filepath.Base(file.Filename)
	if err := h.validator.CheckName(name); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.validator.CheckSize(file.Size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dest, err := h.uploads.Resolve(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "open file failed"})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read file failed"})
		return
	}

	// an unreadable PDF is still stored; its fields come back empty for
	// the reviewer to fill in
	pages := 0
	if info, err := h.validator.Inspect(name, data); err != nil {
		h.log.Warn("pdf failed structural validation", zap.String("file", name), zap.Error(err))
	} else {
		pages = info.Pages
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		h.log.Error("save upload failed", zap.String("file", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save file failed"})
		return
	}

	fields := h.extractor.ExtractPDF(data)
	committees, err := h.store.CommitteesWithMembers(c.Request.Context())
	if err != nil {
		h.log.Error("list committees failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list committees failed"})
		return
	}

	h.log.Info("bill uploaded",
		zap.String("file", name),
		zap.Int("pages", pages),
		zap.Int("fields", len(fields.Map())))
	c.JSON(http.StatusOK, gin.H{
		"filename":   name,
		"pages":      pages,
		"fields":     fields,
		"committees": committees,
	})
}

// parseGenerateForm maps the review form onto a generation request.
// Committee-specific fields are suffixed with the committee code.
func parseGenerateForm(c *gin.Context) (opinion.Request, error) {
	_, urgent := c.GetPostForm("regime_urgencia")
	_, presentation := c.GetPostForm("incluir_apresentacao")

	req := opinion.Request{
		PDFName:          filepath.Base(strings.TrimSpace(c.PostForm("pdf_filename"))),
		BillType:         strings.TrimSpace(c.PostForm("tipo_projeto")),
		BillNumber:       strings.TrimSpace(c.PostForm("numero_projeto")),
		BillDate:         strings.TrimSpace(c.PostForm("data_projeto")),
		Summary:          strings.TrimSpace(c.PostForm("ementa")),
		Authorship:       strings.TrimSpace(c.PostForm("autoria")),
		ProtocolDate:     c.PostForm("data_protocolo"),
		Urgent:           urgent,
		Presentation:     presentation,
		PresentationDate: c.PostForm("data_apresentacao"),
	}
	if req.PDFName == "." {
		req.PDFName = ""
	}

	sharedDate := c.PostForm("data_parecer")
	for _, code := range c.PostFormArray("comissao_selecionada") {
		code = strings.TrimSpace(code)
		sel := opinion.Selection{
			Code:          code,
			OpinionNumber: strings.TrimSpace(c.PostForm("num_parecer_" + code)),
			OpinionDate:   c.DefaultPostForm("data_parecer_"+code, sharedDate),
		}
		if raw := strings.TrimSpace(c.PostForm("relator_" + code)); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return req, errors.New("invalid relator_" + code)
			}
			sel.RapporteurID = id
		}
		req.Selections = append(req.Selections, sel)
	}
	return req, nil
}

func (h *Handler) generate(c *gin.Context) {
	req, err := parseGenerateForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Selections) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "select at least one committee"})
		return
	}

	result, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, opinion.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("generation aborted", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generation failed"})
		return
	}
	if result.Empty() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "generation failed",
			"outcomes": result.Outcomes,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"files":    result.Files(),
		"outcomes": result.Outcomes,
	})
}

func (h *Handler) download(c *gin.Context) {
	name := c.Param("filename")
	path, err := h.generated.Resolve(name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}

func (h *Handler) history(c *gin.Context) {
	records, err := h.store.History.List(c.Request.Context())
	if err != nil {
		h.log.Error("list history failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list history failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": records})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// writeStoreError maps storage sentinels onto status codes.
func (h *Handler) writeStoreError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, storage.ErrInvalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "record already exists"})
	default:
		h.log.Error(op+" failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": op + " failed"})
	}
}

type committeeRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) listCommittees(c *gin.Context) {
	committees, err := h.store.CommitteesWithMembers(c.Request.Context())
	if err != nil {
		h.writeStoreError(c, "list committees", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"committees": committees})
}

func (h *Handler) createCommittee(c *gin.Context) {
	var req committeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	committee := &models.Committee{Name: req.Name, Code: req.Code}
	if err := h.store.Committees.Create(c.Request.Context(), committee); err != nil {
		h.writeStoreError(c, "create committee", err)
		return
	}
	c.JSON(http.StatusCreated, committee)
}

func (h *Handler) updateCommittee(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req committeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	committee := &models.Committee{ID: id, Name: req.Name, Code: req.Code}
	if err := h.store.Committees.Update(c.Request.Context(), committee); err != nil {
		h.writeStoreError(c, "update committee", err)
		return
	}
	c.JSON(http.StatusOK, committee)
}

func (h *Handler) deleteCommittee(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.Committees.Delete(c.Request.Context(), id); err != nil {
		h.writeStoreError(c, "delete committee", err)
		return
	}
	c.Status(http.StatusNoContent)
}

type memberRequest struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	CommitteeID int64  `json:"committee_id"`
}

func (h *Handler) listMembers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.Committees.GetByID(ctx, id); err != nil {
		h.writeStoreError(c, "list members", err)
		return
	}
	members, err := h.store.MembersOf(ctx, id)
	if err != nil {
		h.writeStoreError(c, "list members", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (h *Handler) createMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	if _, err := h.store.Committees.GetByID(ctx, id); err != nil {
		h.writeStoreError(c, "create member", err)
		return
	}
	member := &models.Member{Name: req.Name, Role: req.Role, CommitteeID: id}
	if err := h.store.Members.Create(ctx, member); err != nil {
		h.writeStoreError(c, "create member", err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

func (h *Handler) updateMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req memberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ctx := c.Request.Context()
	member, err := h.store.Members.GetByID(ctx, id)
	if err != nil {
		h.writeStoreError(c, "update member", err)
		return
	}
	member.Name = req.Name
	member.Role = req.Role
	if req.CommitteeID > 0 && req.CommitteeID != member.CommitteeID {
		if _, err := h.store.Committees.GetByID(ctx, req.CommitteeID); err != nil {
			h.writeStoreError(c, "update member", err)
			return
		}
		member.CommitteeID = req.CommitteeID
	}
	if err := h.store.Members.Update(ctx, member); err != nil {
		h.writeStoreError(c, "update member", err)
		return
	}
	c.JSON(http.StatusOK, member)
}

func (h *Handler) deleteMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.Members.Delete(c.Request.Context(), id); err != nil {
		h.writeStoreError(c, "delete member", err)
		return
	}
	c.Status(http.StatusNoContent)
}
