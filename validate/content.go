package validate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"

	"github.com/opd-ai/uploadqueue/limits"
)

// ErrEmptyFile indicates a zero-byte payload.
var ErrEmptyFile = errors.New("file is empty")

// ErrCorruptedContent indicates a payload whose leading bytes do not match
// the signature expected for its declared image type.
var ErrCorruptedContent = errors.New("file content is corrupted")

// ErrNoPayload indicates content validation was requested for a file without
// a payload handle.
var ErrNoPayload = errors.New("no payload handle")

// imageSignature describes one known magic-number check. Mask bytes of zero
// are wildcards, which WebP needs for its RIFF chunk length.
type imageSignature struct {
	mime   string
	prefix []byte
	mask   []byte
}

var imageSignatures = []imageSignature{
	{
		mime:   "image/jpeg",
		prefix: []byte{0xFF, 0xD8, 0xFF},
	},
	{
		mime:   "image/png",
		prefix: []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A},
	},
	{
		mime:   "image/gif",
		prefix: []byte{'G', 'I', 'F', '8'},
	},
	{
		// RIFF <4-byte length> WEBP
		mime:   "image/webp",
		prefix: []byte{'R', 'I', 'F', 'F', 0, 0, 0, 0, 'W', 'E', 'B', 'P'},
		mask:   []byte{0xFF, 0xFF, 0xFF, 0xFF, 0, 0, 0, 0, 0xFF, 0xFF, 0xFF, 0xFF},
	},
}

// ValidateContent inspects the payload itself rather than the declared
// metadata. Zero-byte files are rejected, and for image types the first
// limits.MagicHeaderLength bytes are checked against known signatures.
// A mismatch is reported as corruption, not as a wrong type: the declared
// type already passed the allow-list, so disagreement means damaged or
// mislabeled bytes.
func (v *Validator) ValidateContent(ctx context.Context, f File) Result {
	if err := ctx.Err(); err != nil {
		return Result{Valid: false, Reason: err.Error(), Err: err}
	}

	if f.Size == 0 {
		return invalid(f, fmt.Errorf("%w: %q", ErrEmptyFile, f.Name))
	}

	if !strings.HasPrefix(f.MIME, "image/") {
		// Only image families carry signature checks.
		return Result{Valid: true}
	}

	if f.Data == nil {
		return invalid(f, ErrNoPayload)
	}

	header := make([]byte, limits.MagicHeaderLength)
	n, err := f.Data.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		return invalid(f, fmt.Errorf("reading header of %q: %w", f.Name, err))
	}
	header = header[:n]

	sig, known := signatureFor(f.MIME)
	if !known {
		// Unrecognized image subtype: nothing to check against.
		return Result{Valid: true}
	}

	if !matchesSignature(header, sig) {
		logrus.WithFields(logrus.Fields{
			"function":  "ValidateContent",
			"file_name": f.Name,
			"mime_type": f.MIME,
			"header":    fmt.Sprintf("%X", header),
		}).Warn("Payload header does not match declared image type")
		return invalid(f, fmt.Errorf("%w: %q does not look like %s", ErrCorruptedContent, f.Name, f.MIME))
	}

	return Result{Valid: true}
}

// ContentDigest computes the BLAKE2b-256 digest of the full payload. The
// digest lets collaborators detect duplicate content and verify integrity
// after transfer without the pipeline retaining the bytes.
func ContentDigest(f File) ([blake2b.Size256]byte, error) {
	var digest [blake2b.Size256]byte

	if f.Data == nil {
		return digest, ErrNoPayload
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return digest, fmt.Errorf("initializing digest: %w", err)
	}

	if _, err := io.Copy(h, io.NewSectionReader(f.Data, 0, f.Size)); err != nil {
		return digest, fmt.Errorf("digesting %q: %w", f.Name, err)
	}

	copy(digest[:], h.Sum(nil))
	return digest, nil
}

func signatureFor(mimeType string) (imageSignature, bool) {
	for _, sig := range imageSignatures {
		if sig.mime == mimeType {
			return sig, true
		}
	}
	return imageSignature{}, false
}

func matchesSignature(header []byte, sig imageSignature) bool {
	if len(header) < len(sig.prefix) {
		return false
	}
	if sig.mask == nil {
		return bytes.Equal(header[:len(sig.prefix)], sig.prefix)
	}
	for i, p := range sig.prefix {
		if header[i]&sig.mask[i] != p {
			return false
		}
	}
	return true
}
