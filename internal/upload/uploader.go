// Package upload validates reference images and turns them into data URIs.
package upload

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/newthinker/quantview/internal/core"
)

// DefaultMaxBytes is the upload size ceiling.
const DefaultMaxBytes = 5 * 1024 * 1024

// State of an Uploader.
type State int

const (
	StateEmpty State = iota
	StatePreviewing
	StateError
)

func (s State) String() string {
	switch s {
	case StatePreviewing:
		return "previewing"
	case StateError:
		return "error"
	default:
		return "empty"
	}
}

var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Ticket identifies one accepted file. Only the newest ticket may publish a preview.
type Ticket uint64

// View is a point-in-time copy of the uploader.
type View struct {
	State   State
	Preview string
	Error   string
}

// Uploader holds the preview and error of one dashboard session.
// An invalid file sets the error but leaves an existing preview in place.
type Uploader struct {
	mu       sync.Mutex
	maxBytes int64
	preview  string
	errMsg   string
	gen      Ticket
	onUpload func(dataURI string)
}

// New creates an uploader. onUpload is called with each published data URI.
func New(maxBytes int64, onUpload func(dataURI string)) *Uploader {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Uploader{maxBytes: maxBytes, onUpload: onUpload}
}

// MaxBytes returns the configured size ceiling.
func (u *Uploader) MaxBytes() int64 {
	return u.maxBytes
}

// Validate checks the declared content type and size of a file.
func (u *Uploader) Validate(contentType string, size int64) error {
	if !allowedTypes[normalizeType(contentType)] {
		return core.WrapError(core.ErrUploadType, fmt.Errorf("content type %q", contentType))
	}
	if size > u.maxBytes {
		return sizeError(u.maxBytes, size)
	}
	return nil
}

// SizeError returns the user-facing error for a file of size bytes that
// exceeds the ceiling, for callers that cut the body off before Validate.
func (u *Uploader) SizeError(size int64) error {
	return sizeError(u.maxBytes, size)
}

// Upload validates and decodes a file, publishing it as the new preview.
// The decode runs asynchronously; if another file is accepted before it
// finishes, this result is dropped.
func (u *Uploader) Upload(ctx context.Context, data Source) (string, error) {
	if err := u.Validate(data.ContentType, data.Size); err != nil {
		u.Fail(err)
		return "", err
	}

	ticket := u.Begin()

	var res Result
	select {
	case res = <-Decode(data, u.maxBytes):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if res.Err != nil {
		if u.current(ticket) {
			u.Fail(res.Err)
		}
		return "", res.Err
	}
	if !u.Complete(ticket, res.DataURI) {
		return "", ErrSuperseded
	}
	return res.DataURI, nil
}

// Begin accepts a new file and returns its ticket, invalidating older ones.
func (u *Uploader) Begin() Ticket {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.gen++
	return u.gen
}

// Complete publishes dataURI if ticket is still the newest. It reports
// whether the preview was replaced.
func (u *Uploader) Complete(ticket Ticket, dataURI string) bool {
	u.mu.Lock()
	if ticket != u.gen {
		u.mu.Unlock()
		return false
	}
	u.preview = dataURI
	u.errMsg = ""
	cb := u.onUpload
	u.mu.Unlock()

	if cb != nil {
		cb(dataURI)
	}
	return true
}

// Fail records a user-visible error without touching the preview.
func (u *Uploader) Fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.errMsg = Message(err)
}

// View returns the current state.
func (u *Uploader) View() View {
	u.mu.Lock()
	defer u.mu.Unlock()

	v := View{Preview: u.preview, Error: u.errMsg}
	switch {
	case u.errMsg != "":
		v.State = StateError
	case u.preview != "":
		v.State = StatePreviewing
	default:
		v.State = StateEmpty
	}
	return v
}

func (u *Uploader) current(ticket Ticket) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return ticket == u.gen
}

func normalizeType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func sizeError(maxBytes, size int64) error {
	e := core.WrapError(core.ErrUploadSize, fmt.Errorf("file has %d bytes, limit %d", size, maxBytes))
	e.Message = fmt.Sprintf("图片大小不能超过%sMB", formatMB(maxBytes))
	return e
}

func formatMB(n int64) string {
	mb := float64(n) / (1024 * 1024)
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d", int64(mb))
	}
	return fmt.Sprintf("%.1f", mb)
}
