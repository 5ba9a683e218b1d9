package document

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid PNG header so content sniffing kicks in.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestNew_DeclaredMIMEWins(t *testing.T) {
	doc := New([]byte("fake"), "scan.jpg", "image/jpeg")
	assert.Equal(t, "image/jpeg", doc.MIME)
	assert.True(t, doc.IsImage())
}

func TestNew_SniffsOctetStream(t *testing.T) {
	doc := New(pngHeader, "scan.bin", "application/octet-stream")
	assert.Equal(t, "image/png", doc.MIME)
}

func TestNew_ExtensionFallback(t *testing.T) {
	doc := New([]byte{0x01, 0x02, 0x03}, "report.pdf", "")
	assert.Equal(t, "application/pdf", doc.MIME)
}

func TestNew_HashIsStable(t *testing.T) {
	a := New([]byte("same content"), "a.png", "image/png")
	b := New([]byte("same content"), "b.png", "image/png")
	c := New([]byte("other content"), "a.png", "image/png")

	assert.Equal(t, a.Hash, b.Hash)
	assert.NotEqual(t, a.Hash, c.Hash)
	assert.Len(t, a.Hash, 64)
}

func TestImageConverter_Passthrough(t *testing.T) {
	conv := NewImageConverter()
	doc := New(pngHeader, "scan.png", "image/png")

	pages, err := conv.Convert(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 0, pages[0].Index)
	assert.Equal(t, "png", pages[0].Format)
	assert.Equal(t, doc.Bytes, pages[0].Bytes)
}

func TestImageConverter_RejectsNonImage(t *testing.T) {
	conv := NewImageConverter()
	assert.False(t, conv.Supports("application/pdf"))

	doc := New([]byte("%PDF-1.4"), "report.pdf", "application/pdf")
	_, err := conv.Convert(context.Background(), doc)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Contains(t, err.Error(), "application/pdf")
}
