package worker

// TaskPayload is the message published for each extraction job. The document
// bytes travel with the task so workers need no shared filesystem.
type TaskPayload struct {
	TaskID       string `json:"task_id"`
	Document     []byte `json:"document"`
	Filename     string `json:"filename"`
	MIME         string `json:"mime"`
	DocumentHash string `json:"document_hash"`

	Strategy string `json:"strategy"`
	Model    string `json:"model,omitempty"`
	Prompt   string `json:"prompt,omitempty"`
	Language string `json:"language,omitempty"`

	CacheEnabled    bool   `json:"cache_enabled"`
	StorageProfile  string `json:"storage_profile,omitempty"`
	StorageFilename string `json:"storage_filename,omitempty"`

	CorrelationID string `json:"correlation_id"`
}
