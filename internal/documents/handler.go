package documents

import (
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"visionestate/listing-portal/listing-portal-backend/internal/auth"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	props := rg.Group("/properties", auth.RequireRole(auth.RoleSeller))
	{
		props.POST("/:id/documents", h.Upload)
		props.POST("/:id/photos", h.UploadPhotos)
	}
	admin := rg.Group("/admin/properties", auth.RequireRole(auth.RoleAdmin, auth.RoleInspector))
	{
		admin.GET("/:id/documents/:docId", h.Download)
	}
}

func (h *Handler) Upload(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	docType, err := verification.ParseDocumentType(c.PostForm("document_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	actor, _ := auth.ActorFrom(c)
	out, err := h.service.UploadDocument(c.Request.Context(), UploadRequest{
		PropertyID:   id,
		DocumentType: docType,
		File: File{
			Name:        file.Filename,
			ContentType: file.Header.Get("Content-Type"),
			Size:        file.Size,
			Content:     f,
		},
		Actor: actor,
	})
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":            out.Record.Status,
		"changed":           out.Step.Changed(),
		"missing_documents": out.Record.MissingDocuments(),
	})
}

func (h *Handler) UploadPhotos(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}
	headers := form.File["photos"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "photos are required"})
		return
	}

	files := make([]File, 0, len(headers))
	opened := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		opened = append(opened, f)
		files = append(files, File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Content:     f,
		})
	}

	actor, _ := auth.ActorFrom(c)
	out, err := h.service.UploadPhotos(c.Request.Context(), PhotoRequest{PropertyID: id, Files: files, Actor: actor})
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": out.Record.Status, "photos": len(out.Record.Photos)})
}

func (h *Handler) Download(c *gin.Context) {
	id, ok := verification.ParamID(c)
	if !ok {
		return
	}
	docID, err := uuid.Parse(c.Param("docId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid document id"})
		return
	}
	url, err := h.service.DownloadURL(c.Request.Context(), id, docID)
	if err != nil {
		verification.RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
