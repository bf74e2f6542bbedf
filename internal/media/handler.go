package media

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sofra/media/internal/category"
	"github.com/sofra/media/internal/response"
	"github.com/sofra/media/internal/storage"
	"github.com/sofra/media/internal/transform"
)

// maxMultipartMemory caps how much of a multipart body is held in memory
// before spilling to disk.
const maxMultipartMemory = 32 << 20

// Request-body ceilings per endpoint, enforced before any multipart
// parsing so an oversized body is never spooled to disk. Sized with
// headroom above the per-file limit so a slightly-too-large file still
// reaches the validator and gets its specific rejection message.
const (
	maxSingleBody = 2 * MaxFileSize
	maxBatchBody  = (MaxBatchFiles + 2) * MaxFileSize
)

// Handler holds HTTP handlers for image endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new media Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// DeleteRequest is the JSON body of the delete endpoint.
type DeleteRequest struct {
	URL      string `json:"url"`
	Category string `json:"category"`
}

// Upload godoc
//
//	@Summary		Upload an image
//	@Description	Validates, optionally optimizes, and stores a single image with a 150x150 thumbnail.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			image		formData	file	true	"image file (JPG, PNG, WebP, or GIF, max 5MB)"
//	@Param			category	formData	string	false	"image category"	Enums(restaurants, menuItems, offers, categories, general)
//	@Param			optimize	formData	string	false	"re-encode to the category profile"	default(true)
//	@Success		200	{object}	response.Envelope{data=StoredImage}
//	@Failure		400	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/images/upload [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Available() {
		response.ServiceUnavailable(w, "image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSingleBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeParseError(w, err)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "no file selected")
		return
	}
	defer file.Close()

	cat, err := category.Parse(r.FormValue("category"))
	if err != nil {
		response.BadRequest(w, "invalid category")
		return
	}
	optimize := r.FormValue("optimize") != "false"

	payload, err := readUpload(file, header)
	if err != nil {
		response.InternalError(w)
		return
	}

	img, err := h.svc.Upload(r.Context(), payload, cat, optimize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, "image uploaded successfully", img)
}

// UploadMultiple godoc
//
//	@Summary		Upload multiple images
//	@Description	Validates every file before storing any, then stores the valid ones. Files failing validation or storage are listed in "failed" by original name.
//	@Tags			images
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			images		formData	file	true	"image files (1-10)"
//	@Param			category	formData	string	false	"shared image category"	Enums(restaurants, menuItems, offers, categories, general)
//	@Param			optimize	formData	string	false	"re-encode to the default profile"	default(true)
//	@Success		200	{object}	response.Envelope{data=[]StoredImage}
//	@Failure		400	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/images/upload-multiple [post]
func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Available() {
		response.ServiceUnavailable(w, "image storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBatchBody)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeParseError(w, err)
		return
	}

	headers := r.MultipartForm.File["images"]
	if len(headers) == 0 {
		response.BadRequest(w, "no files selected")
		return
	}

	cat, err := category.Parse(r.FormValue("category"))
	if err != nil {
		response.BadRequest(w, "invalid category")
		return
	}
	optimize := r.FormValue("optimize") != "false"

	files := make([]File, 0, len(headers))
	for _, hdr := range headers {
		f, err := hdr.Open()
		if err != nil {
			response.InternalError(w)
			return
		}
		payload, err := readUpload(f, hdr)
		f.Close()
		if err != nil {
			response.InternalError(w)
			return
		}
		files = append(files, payload)
	}

	res, err := h.svc.UploadBatch(r.Context(), files, cat, optimize)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if len(res.Stored) == 0 {
		response.JSON(w, http.StatusInternalServerError, response.Envelope{
			Success: false,
			Message: "no image could be stored",
			Failed:  res.Failed,
		})
		return
	}

	response.JSON(w, http.StatusOK, response.Envelope{
		Success: true,
		Message: "images uploaded",
		Data:    res.Stored,
		Failed:  res.Failed,
	})
}

// Delete godoc
//
//	@Summary		Delete an image
//	@Description	Resolves the public URL back to a storage key and removes the object and its thumbnail. Deleting a missing object is a success.
//	@Tags			images
//	@Accept			json
//	@Produce		json
//	@Param			body	body		DeleteRequest	true	"image URL and category"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/api/images/delete [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if req.URL == "" {
		response.BadRequest(w, "image URL is required")
		return
	}

	cat, err := category.Parse(req.Category)
	if err != nil {
		response.BadRequest(w, "invalid category")
		return
	}

	if err := h.svc.Delete(r.Context(), req.URL, cat); err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, "image deleted successfully", nil)
}

// Info godoc
//
//	@Summary		Get image metadata
//	@Description	Returns size, timestamps, and the public URL of a stored image.
//	@Tags			images
//	@Produce		json
//	@Param			category	path	string	true	"image category"
//	@Param			filename	path	string	true	"stored filename"
//	@Success		200	{object}	response.Envelope{data=ImageInfo}
//	@Failure		400	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		503	{object}	response.Envelope
//	@Router			/api/images/info/{category}/{filename} [get]
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	cat, err := category.Parse(chi.URLParam(r, "category"))
	if err != nil {
		response.BadRequest(w, "invalid category")
		return
	}

	info, err := h.svc.Info(r.Context(), cat, chi.URLParam(r, "filename"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.OK(w, "", info)
}

// writeError maps service errors onto the response envelope. Raw errors
// never reach the caller.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		response.BadRequest(w, vErr.Reason)
	case errors.Is(err, transform.ErrBadImage):
		response.BadRequest(w, "invalid or corrupt image data")
	case errors.Is(err, ErrBackendUnavailable):
		response.ServiceUnavailable(w, "image storage is not configured")
	case errors.Is(err, storage.ErrObjectNotFound):
		response.NotFound(w, "image not found")
	default:
		log.Printf("media: %v", err)
		response.InternalError(w)
	}
}

// writeParseError maps a multipart parse failure to a 400. A body that
// blew past the MaxBytesReader ceiling gets its own message; the limit
// check may also surface as a generic multipart error once the underlying
// reader is cut off, which still lands on a 400.
func writeParseError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		response.BadRequest(w, "request body exceeds the size limit")
		return
	}
	response.BadRequest(w, "invalid multipart form")
}

// readUpload drains one multipart part into a File. The size ceiling is
// enforced again by validation; the +1 read lets oversized files reach the
// validator instead of being silently truncated.
func readUpload(f multipart.File, hdr *multipart.FileHeader) (File, error) {
	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return File{}, err
	}
	return File{
		OriginalName: hdr.Filename,
		ContentType:  hdr.Header.Get("Content-Type"),
		Data:         data,
	}, nil
}
