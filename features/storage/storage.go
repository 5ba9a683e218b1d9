package storage

import "errors"

var (
	ErrUnknownProfile = errors.New("unknown storage profile")
	ErrNotFound       = errors.New("file not found")
)

// Profile stores and retrieves extracted text files under a named
// configuration loaded from a YAML profile definition.
type Profile interface {
	Save(filename string, data []byte) error
	Load(filename string) ([]byte, error)
	List() ([]string, error)
	Delete(filename string) error
}
