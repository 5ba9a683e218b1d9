package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

const keyPrefix = "ocr:result:"

// Key derives the content-addressed cache key for an extraction. It is a
// pure function of every input that affects the output; each field is
// length-prefixed before hashing so distinct field combinations can never
// collide by concatenation.
func Key(documentHash, strategyName, model, prompt, language string) string {
	h := sha256.New()
	for _, field := range []string{documentHash, strategyName, model, prompt, language} {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Result is a completed extraction stored under a cache key. Written once
// per computation; a recomputation overwrites (the key already encodes every
// input, so overwriting can only refresh identical semantics).
type Result struct {
	Text        string    `json:"text"`
	Strategy    string    `json:"strategy"`
	Model       string    `json:"model,omitempty"`
	Pages       int       `json:"pages"`
	ExtractedAt time.Time `json:"extracted_at"`
}
