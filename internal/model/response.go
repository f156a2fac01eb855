package model

import "time"

type ChatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type UploadResponse struct {
	Message  string `json:"message,omitempty"`
	Filename string `json:"filename,omitempty"`
}

// UploadEntry /uploads 列表项，按上传时间升序，最后一个为最新
type UploadEntry struct {
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

type TryOnResponse struct {
	ProcessedImageURL string `json:"processedImageUrl"`
}

type DefaultGarment struct {
	URL  string      `json:"url"`
	Type GarmentType `json:"type"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
