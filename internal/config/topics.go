package config

const (
	// TopicOCRTask is the NSQ topic for queued extraction tasks.
	TopicOCRTask = "ocr.task"

	// ChannelWorker is the consumer channel shared by all OCR workers, so
	// tasks are load-balanced instead of broadcast.
	ChannelWorker = "worker"
)
