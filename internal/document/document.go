package document

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when a document cannot be reduced to page
// images (or otherwise handled) by the selected strategy.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is an inbound file plus everything derived from it that the
// pipeline keys on: detected media type and content digest.
type Document struct {
	Filename string
	MIME     string
	Bytes    []byte
	Hash     string
}

// New builds a Document, detecting the media type when the declared one is
// absent or a generic octet-stream. Uploads proxied through storage gateways
// frequently arrive as application/octet-stream, so content sniffing with an
// extension fallback is required.
func New(data []byte, filename, declaredMIME string) *Document {
	sum := sha256.Sum256(data)
	return &Document{
		Filename: filename,
		MIME:     detectMIME(data, filename, declaredMIME),
		Bytes:    data,
		Hash:     hex.EncodeToString(sum[:]),
	}
}

func detectMIME(data []byte, filename, declared string) string {
	declared = normalizeMIME(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}

	detected := normalizeMIME(http.DetectContentType(data))
	if detected != "application/octet-stream" && detected != "text/plain" {
		return detected
	}

	if byExt := normalizeMIME(mime.TypeByExtension(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return detected
}

func normalizeMIME(mt string) string {
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	return strings.TrimSpace(strings.ToLower(mt))
}

func (d *Document) IsImage() bool {
	return strings.HasPrefix(d.MIME, "image/")
}

// UnsupportedFormatError wraps ErrUnsupportedFormat naming the offending
// media type, per the strategy contract.
func UnsupportedFormatError(mimeType string) error {
	return fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
}
