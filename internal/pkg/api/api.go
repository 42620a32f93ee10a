package api

import "github.com/edugrade/segma/internal/pkg/segments"

const (
	// PrmFile is the multipart form file parameter
	PrmFile = "file"
	// HdrOwnerID carries the submitting account id, set by the fronting
	// auth layer. Missing or 0 means an unauthenticated/system owner.
	HdrOwnerID = "X-Owner-ID"
)

// UploadResult is the upload relay response
type UploadResult struct {
	Key string `json:"key"`
}

// SegmentRequest asks for segmentation of an uploaded file
type SegmentRequest struct {
	Key string `json:"key"`
}

// SegmentResult is the segmentation response
type SegmentResult struct {
	Segments []segments.Segment `json:"segments"`
}

// FileRecord is one item of the file listing
type FileRecord struct {
	ID       int64              `json:"id"`
	Filename string             `json:"filename"`
	Key      string             `json:"key"`
	Segments []segments.Segment `json:"segments,omitempty"`
	Created  int64              `json:"createdAt"`
}

// StatusData is one websocket status push during segmentation
type StatusData struct {
	Key    string `json:"key"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
