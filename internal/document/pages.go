package document

import (
	"context"
	"strings"
)

// PageImage is one page of a document rendered as an image, in the order the
// page appears in the source.
type PageImage struct {
	Index  int
	Format string // image subtype, e.g. "jpeg" or "png"
	Bytes  []byte
}

// Converter turns a document into an ordered sequence of page images. The
// conversion itself is collaborator-owned; the pipeline only depends on this
// interface.
type Converter interface {
	Supports(mimeType string) bool
	Convert(ctx context.Context, doc *Document) ([]PageImage, error)
}

// ImageConverter passes single-image documents through unchanged. Rendering
// PDFs or office documents to images belongs to a converter sidecar, not
// this process.
type ImageConverter struct{}

func NewImageConverter() *ImageConverter { return &ImageConverter{} }

var imageMIMEs = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/tiff": {},
	"image/bmp":  {},
	"image/webp": {},
}

func (c *ImageConverter) Supports(mimeType string) bool {
	_, ok := imageMIMEs[mimeType]
	return ok
}

func (c *ImageConverter) Convert(ctx context.Context, doc *Document) ([]PageImage, error) {
	if !c.Supports(doc.MIME) {
		return nil, UnsupportedFormatError(doc.MIME)
	}
	return []PageImage{{
		Index:  0,
		Format: strings.TrimPrefix(doc.MIME, "image/"),
		Bytes:  doc.Bytes,
	}}, nil
}
