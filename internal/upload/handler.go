package upload

import (
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"receipts/internal/metrics"
	"receipts/internal/server"
)

const (
	// FormField is the multipart field carrying the file.
	FormField = "file"

	// SuccessMessage is returned with every stored upload.
	SuccessMessage = "File uploaded successfully"
)

// Messages of the 400 replies
const (
	MessageNoFile        = "No file provided in the request"
	MessageEmptyFileName = "File name is empty"
)

// Response is the JSON body of a successful upload.
type Response struct {
	Message  string `json:"message"`
	FileName string `json:"file_name"`
	Bucket   string `json:"bucket"`
	FileURL  string `json:"file_url"`
}

// Handler serves the upload function.
type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewHandler returns the HTTP handler for the upload function. It accepts
// POST on any path.
func NewHandler(svc *Service, m *metrics.Metrics, log zerolog.Logger) http.Handler {
	h := &Handler{svc: svc, metrics: m, log: log}

	engine := server.NewEngine(log)
	engine.POST("/*path", h.upload)
	return engine
}

// upload reads the multipart body part by part and streams the first file
// part named "file" into storage without buffering it.
func (h *Handler) upload(c *gin.Context) {
	ctx := c.Request.Context()
	log := server.LoggerFrom(ctx, h.log)

	mr, err := c.Request.MultipartReader()
	if err != nil {
		log.Warn().Err(err).Msg("Request is not multipart form data")
		h.badRequest(c, MessageNoFile)
		return
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			h.badRequest(c, MessageNoFile)
			return
		}
		if err != nil {
			log.Warn().Err(err).Msg("Malformed multipart body")
			h.badRequest(c, MessageNoFile)
			return
		}

		fileName, isFile := fileNameOf(part)
		if part.FormName() != FormField || !isFile {
			part.Close()
			continue
		}
		if fileName == "" {
			part.Close()
			h.badRequest(c, MessageEmptyFileName)
			return
		}

		contentType := part.Header.Get("Content-Type")
		obj, err := h.svc.Upload(ctx, fileName, contentType, part)
		part.Close()
		if err != nil {
			log.Error().
				Err(err).
				Str("file", fileName).
				Str("bucket", h.svc.Bucket()).
				Msg("Upload failed")
			h.metrics.ObserveUpload(metrics.UploadFailed, 0)
			c.JSON(http.StatusInternalServerError, server.ErrorResponse{Error: err.Error()})
			return
		}

		log.Info().
			Str("file", obj.Name).
			Str("bucket", obj.Bucket).
			Str("content_type", obj.ContentType).
			Int64("size", obj.Size).
			Msg("File uploaded")
		h.metrics.ObserveUpload(metrics.UploadOK, obj.Size)

		c.JSON(http.StatusOK, Response{
			Message:  SuccessMessage,
			FileName: obj.Name,
			Bucket:   obj.Bucket,
			FileURL:  obj.URL,
		})
		return
	}
}

func (h *Handler) badRequest(c *gin.Context, message string) {
	h.metrics.ObserveUpload(metrics.UploadBadRequest, 0)
	c.JSON(http.StatusBadRequest, server.ErrorResponse{Error: message})
}

// fileNameOf returns the raw filename parameter of the part's
// Content-Disposition. isFile reports whether the parameter is present at all;
// a part without it is a plain form value. Unlike Part.FileName, the name is
// not reduced to its base element.
func fileNameOf(part *multipart.Part) (name string, isFile bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	name, isFile = params["filename"]
	return name, isFile
}
