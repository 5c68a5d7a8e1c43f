package web

import (
	"errors"
	"net/http"

	"github.com/newthinker/quantview/internal/core"
	"github.com/newthinker/quantview/internal/upload"
	"go.uber.org/zap"
)

const (
	uploadField = "image"
	// multipartSlack covers boundaries and part headers around the file.
	multipartSlack = 64 << 10
	// uploadMemory is kept in memory while parsing; the rest spills to disk.
	uploadMemory = 1 << 20
)

// Upload accepts a reference image (multipart field "image") and renders the
// image panel. A rejected file leaves the previous preview in place.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	coord := h.session(w, r)
	up := coord.Uploader()

	r.Body = http.MaxBytesReader(w, r.Body, up.MaxBytes()+multipartSlack)
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			err = up.SizeError(r.ContentLength)
		}
		up.Fail(err)
		h.finishUpload(w, up, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		up.Fail(err)
		h.finishUpload(w, up, err)
		return
	}
	defer file.Close()

	_, err = up.Upload(r.Context(), upload.Source{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	})
	if err == nil {
		h.logger.Debug("reference image uploaded",
			zap.String("name", header.Filename),
			zap.Int64("size", header.Size),
		)
	}
	h.finishUpload(w, up, err)
}

func (h *Handler) finishUpload(w http.ResponseWriter, up *upload.Uploader, err error) {
	result := "accepted"
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrSuperseded):
		result = "superseded"
	case errors.Is(err, core.ErrUploadType):
		result = "rejected"
		h.logger.Info("upload rejected", zap.Error(err))
	default:
		result = "error"
		h.logger.Warn("upload failed", zap.Error(err))
	}
	h.recorder.RecordUpload(result)

	h.renderFragment(w, http.StatusOK, "upload", PageData{Upload: newUploadView(up.View())})
}
