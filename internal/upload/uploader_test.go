package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"github.com/newthinker/quantview/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, padTo int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	if padTo > buf.Len() {
		buf.Write(make([]byte, padTo-buf.Len()))
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func source(contentType string, data []byte) Source {
	return Source{Name: "f", ContentType: contentType, Size: int64(len(data)), Reader: bytes.NewReader(data)}
}

func TestUploader_Validate(t *testing.T) {
	u := New(DefaultMaxBytes, nil)

	assert.NoError(t, u.Validate("image/png", 1024))
	assert.NoError(t, u.Validate("image/jpeg", DefaultMaxBytes))
	assert.NoError(t, u.Validate("image/jpeg; charset=binary", 10))

	err := u.Validate("image/gif", 10)
	require.Error(t, err)
	assert.Equal(t, "只支持JPG和PNG格式的图片", Message(err))

	err = u.Validate("image/png", DefaultMaxBytes+1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadSize))
	assert.Equal(t, "图片大小不能超过5MB", Message(err))
}

func TestUploader_ValidPNGReplacesPreview(t *testing.T) {
	var published []string
	u := New(DefaultMaxBytes, func(uri string) { published = append(published, uri) })

	data := pngBytes(t, 1<<20)
	uri, err := u.Upload(context.Background(), source("image/png", data))
	require.NoError(t, err)

	require.Len(t, published, 1)
	assert.Equal(t, uri, published[0])

	view := u.View()
	assert.Equal(t, StatePreviewing, view.State)
	assert.Equal(t, uri, view.Preview)
	assert.Empty(t, view.Error)

	// The published payload decodes back to an image
	require.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(uri, "data:image/png;base64,"))
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(raw))
	assert.NoError(t, err)
}

func TestUploader_OversizedJPEGKeepsPreview(t *testing.T) {
	calls := 0
	u := New(DefaultMaxBytes, func(string) { calls++ })

	first, err := u.Upload(context.Background(), source("image/png", pngBytes(t, 0)))
	require.NoError(t, err)

	big := Source{ContentType: "image/jpeg", Size: 10 << 20, Reader: bytes.NewReader(jpegBytes(t))}
	_, err = u.Upload(context.Background(), big)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadSize))

	view := u.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, "图片大小不能超过5MB", view.Error)
	assert.Equal(t, first, view.Preview, "previous preview must survive a rejected file")
	assert.Equal(t, 1, calls)
}

func TestUploader_UnderreportedSizeStillRejected(t *testing.T) {
	u := New(512*1024, nil)

	lying := Source{ContentType: "image/png", Size: 10, Reader: bytes.NewReader(pngBytes(t, 600*1024))}
	_, err := u.Upload(context.Background(), lying)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadSize))
	assert.Equal(t, "图片大小不能超过0.5MB", Message(err))
}

func TestUploader_SniffedTypeMustMatch(t *testing.T) {
	u := New(DefaultMaxBytes, nil)

	_, err := u.Upload(context.Background(), source("image/png", []byte("GIF89a not really")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadType))

	_, err = u.Upload(context.Background(), source("image/png", jpegBytes(t)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadType))
	assert.Equal(t, StateError, u.View().State)
}

func TestUploader_ErrorClearedBySuccess(t *testing.T) {
	u := New(DefaultMaxBytes, nil)

	u.Fail(core.ErrUploadType)
	assert.Equal(t, StateError, u.View().State)

	_, err := u.Upload(context.Background(), source("image/jpeg", jpegBytes(t)))
	require.NoError(t, err)
	view := u.View()
	assert.Equal(t, StatePreviewing, view.State)
	assert.True(t, strings.HasPrefix(view.Preview, "data:image/jpeg;base64,"))
}

func TestUploader_StaleTicketDropped(t *testing.T) {
	var published []string
	u := New(DefaultMaxBytes, func(uri string) { published = append(published, uri) })

	older := u.Begin()
	newer := u.Begin()

	assert.True(t, u.Complete(newer, "data:image/png;base64,NEW"))
	assert.False(t, u.Complete(older, "data:image/png;base64,OLD"))

	assert.Equal(t, "data:image/png;base64,NEW", u.View().Preview)
	assert.Equal(t, []string{"data:image/png;base64,NEW"}, published)
}

func TestUploader_EmptyState(t *testing.T) {
	u := New(0, nil)
	assert.Equal(t, int64(DefaultMaxBytes), u.MaxBytes())
	assert.Equal(t, StateEmpty, u.View().State)
	assert.Equal(t, "empty", StateEmpty.String())
}

func TestMessage_UnknownError(t *testing.T) {
	assert.Equal(t, "图片读取失败，请重试", Message(errors.New("io")))
}

func TestUploader_OversizedDimensionsRejected(t *testing.T) {
	u := New(DefaultMaxBytes, nil)

	first, err := u.Upload(context.Background(), source("image/png", pngBytes(t, 0)))
	require.NoError(t, err)

	// A tall blank image compresses to a few KB but would decode to tens of MB.
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, core.MaxImageSide+1))))
	require.Less(t, buf.Len(), 64*1024)

	_, err = u.Upload(context.Background(), source("image/png", buf.Bytes()))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUploadDims))
	assert.Equal(t, core.ErrUploadDims.Message, Message(err))

	view := u.View()
	assert.Equal(t, StateError, view.State)
	assert.Equal(t, first, view.Preview)
}
