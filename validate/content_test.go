package validate

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func payloadFile(name, mime string, data []byte) File {
	return File{
		Name: name,
		Size: int64(len(data)),
		MIME: mime,
		Data: bytes.NewReader(data),
	}
}

// TestValidateContentSignatures checks the known magic numbers for each
// supported image type.
func TestValidateContentSignatures(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0x01}
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
	gif := []byte("GIF89a______")
	webp := []byte{'R', 'I', 'F', 'F', 0x24, 0x08, 0x00, 0x00, 'W', 'E', 'B', 'P'}

	tests := []struct {
		name  string
		file  File
		valid bool
	}{
		{"jpeg_ok", payloadFile("a.jpg", "image/jpeg", jpeg), true},
		{"png_ok", payloadFile("a.png", "image/png", png), true},
		{"gif_ok", payloadFile("a.gif", "image/gif", gif), true},
		{"webp_ok", payloadFile("a.webp", "image/webp", webp), true},
		{"jpeg_bytes_as_png", payloadFile("a.png", "image/png", jpeg), false},
		{"png_bytes_as_jpeg", payloadFile("a.jpg", "image/jpeg", png), false},
		{"garbage_as_gif", payloadFile("a.gif", "image/gif", []byte("not a gif at all")), false},
		{"riff_without_webp", payloadFile("a.webp", "image/webp", []byte("RIFF1234WAVE")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validator.ValidateContent(context.Background(), tt.file)
			assert.Equal(t, tt.valid, r.Valid)
			if !tt.valid {
				assert.True(t, errors.Is(r.Err, ErrCorruptedContent), "got %v", r.Err)
			}
		})
	}
}

// TestValidateContentEmptyFile verifies zero-byte payloads are rejected for
// any type.
func TestValidateContentEmptyFile(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	r := validator.ValidateContent(context.Background(), payloadFile("empty.pdf", "application/pdf", nil))
	require.False(t, r.Valid)
	assert.True(t, errors.Is(r.Err, ErrEmptyFile))
}

// TestValidateContentNonImagePasses verifies non-image types skip signature
// checks.
func TestValidateContentNonImagePasses(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	r := validator.ValidateContent(context.Background(), payloadFile("doc.pdf", "application/pdf", []byte("%PDF-1.7 ...")))
	assert.True(t, r.Valid)
}

// TestValidateContentUnknownImageSubtype verifies unrecognized image subtypes
// pass without a signature to check against.
func TestValidateContentUnknownImageSubtype(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	r := validator.ValidateContent(context.Background(), payloadFile("a.tiff", "image/tiff", []byte("II*\x00 something")))
	assert.True(t, r.Valid)
}

// TestValidateContentShortHeader verifies payloads shorter than the expected
// signature are reported as corrupted rather than panicking.
func TestValidateContentShortHeader(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	r := validator.ValidateContent(context.Background(), payloadFile("a.png", "image/png", []byte{0x89, 'P'}))
	require.False(t, r.Valid)
	assert.True(t, errors.Is(r.Err, ErrCorruptedContent))
}

// TestValidateContentMissingPayload verifies image checks need a payload
// handle.
func TestValidateContentMissingPayload(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	r := validator.ValidateContent(context.Background(), File{Name: "a.jpg", Size: 10, MIME: "image/jpeg"})
	require.False(t, r.Valid)
	assert.True(t, errors.Is(r.Err, ErrNoPayload))
}

// TestValidateContentCancelledContext verifies the context is honored before
// any payload read.
func TestValidateContentCancelledContext(t *testing.T) {
	validator := NewValidator(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := validator.ValidateContent(ctx, payloadFile("a.jpg", "image/jpeg", []byte{0xFF, 0xD8, 0xFF}))
	require.False(t, r.Valid)
	assert.True(t, errors.Is(r.Err, context.Canceled))
}

// TestContentDigest verifies digests are stable and content-sensitive.
func TestContentDigest(t *testing.T) {
	a := payloadFile("a.bin", "application/pdf", []byte("identical content"))
	b := payloadFile("b.bin", "application/pdf", []byte("identical content"))
	c := payloadFile("c.bin", "application/pdf", []byte("different content"))

	da, err := ContentDigest(a)
	require.NoError(t, err)
	db, err := ContentDigest(b)
	require.NoError(t, err)
	dc, err := ContentDigest(c)
	require.NoError(t, err)

	assert.Equal(t, da, db, "same content must digest identically")
	assert.NotEqual(t, da, dc, "different content must digest differently")

	_, err = ContentDigest(File{Name: "nil.bin", Size: 4})
	assert.True(t, errors.Is(err, ErrNoPayload))
}
