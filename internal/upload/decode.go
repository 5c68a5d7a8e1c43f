package upload

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/newthinker/quantview/internal/core"
)

// ErrSuperseded is returned when a newer file replaced this one mid-decode.
var ErrSuperseded = errors.New("upload superseded by a newer file")

// Source is an incoming file.
type Source struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Result of an asynchronous decode.
type Result struct {
	DataURI string
	MIME    string
	Err     error
}

// Decode reads src in the background and encodes it as a data URI. The
// content is sniffed; it must be JPEG or PNG and agree with the declared type.
// The image header must report dimensions within core.ImageWithinLimits.
func Decode(src Source, maxBytes int64) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		out <- decode(src, maxBytes)
	}()
	return out
}

func decode(src Source, maxBytes int64) Result {
	data, err := io.ReadAll(io.LimitReader(src.Reader, maxBytes+1))
	if err != nil {
		return Result{Err: fmt.Errorf("reading upload: %w", err)}
	}
	if int64(len(data)) > maxBytes {
		return Result{Err: sizeError(maxBytes, int64(len(data)))}
	}

	detected := mimetype.Detect(data)
	sniffed := detected.String()
	if !allowedTypes[sniffed] {
		return Result{Err: core.WrapError(core.ErrUploadType, fmt.Errorf("content sniffed as %s", sniffed))}
	}
	if declared := normalizeType(src.ContentType); declared != "" && !detected.Is(declared) {
		return Result{Err: core.WrapError(core.ErrUploadType,
			fmt.Errorf("declared %s but content is %s", declared, sniffed))}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Result{Err: core.WrapError(core.ErrUploadType, fmt.Errorf("reading image header: %w", err))}
	}
	if !core.ImageWithinLimits(cfg.Width, cfg.Height) {
		return Result{Err: core.WrapError(core.ErrUploadDims,
			fmt.Errorf("image is %dx%d pixels", cfg.Width, cfg.Height))}
	}

	return Result{
		DataURI: DataURI(sniffed, data),
		MIME:    sniffed,
	}
}

// DataURI encodes data as a base64 data URI.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Message returns the user-facing text for an upload error.
func Message(err error) string {
	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		return coreErr.Message
	}
	return "图片读取失败，请重试"
}
