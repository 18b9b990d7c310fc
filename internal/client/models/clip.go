package models

import "time"

// Clip is the backend's metadata for one uploaded clip or screenshot.
type Clip struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	ClipType     string    `json:"clip_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Uploader     string    `json:"uploader_username"`
	HasThumbnail bool      `json:"has_thumbnail"`
	CreatedAt    time.Time `json:"created_at"`
}

// ClipPage is one page of the clip listing.
type ClipPage struct {
	Clips []Clip `json:"clips"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
}
