// Package queue defines message payloads exchanged over the message broker
// and the background consumer that records them.
package queue

// AudioUploadedEvent is published after a file upload commits.  It carries
// enough information for downstream consumers to log or trigger analytics
// without querying the primary database.
type AudioUploadedEvent struct {
	FileID     uint64 `json:"file_id"`
	UserID     uint64 `json:"user_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	SizeBytes  int64  `json:"size_bytes"`
	UploadedAt string `json:"uploaded_at"`
}

// UserDeletedEvent is published after an admin removes a user and their
// files.
type UserDeletedEvent struct {
	UserID       uint64 `json:"user_id"`
	YandexID     string `json:"yandex_id"`
	Email        string `json:"email"`
	FilesRemoved int    `json:"files_removed"`
	DeletedAt    string `json:"deleted_at"`
}

// Queue names, shared between the publisher and the consumer.
const (
	AudioUploadedQueue = "audio.uploaded"
	UserDeletedQueue   = "user.deleted"
)
