package ocr

import "errors"

// Request carries the submission parameters shared by the multipart and
// JSON upload endpoints.
type Request struct {
	Strategy        string `json:"strategy"`
	Model           string `json:"model"`
	Prompt          string `json:"prompt"`
	Language        string `json:"language"`
	CacheEnabled    bool   `json:"ocr_cache"`
	StorageProfile  string `json:"storage_profile"`
	StorageFilename string `json:"storage_filename"`
}

func (r *Request) Validate() error {
	if r.Strategy == "" {
		return errors.New("strategy is required")
	}
	if r.Language == "" {
		r.Language = "en"
	}
	if r.StorageProfile == "" {
		r.StorageProfile = "default"
	}
	return nil
}
