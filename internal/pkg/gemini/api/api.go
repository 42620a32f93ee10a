package api

// File is the media service's reference to an uploaded,
// possibly still processing media object
type File struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	State    string `json:"state"`
}

// Remote file processing states
const (
	StateProcessing = "PROCESSING"
	StateActive     = "ACTIVE"
	StateFailed     = "FAILED"
)

// UploadResponse wraps the finalize response body
type UploadResponse struct {
	File File `json:"file"`
}

// Part is one piece of generation input or output
type Part struct {
	Text     string    `json:"text,omitempty"`
	FileData *FileData `json:"file_data,omitempty"`
}

// FileData references an uploaded file in a generation request
type FileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

// Content is a list of parts
type Content struct {
	Parts []Part `json:"parts"`
}

// GenerateRequest is the generation endpoint payload
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// Candidate is one generated answer
type Candidate struct {
	Content Content `json:"content"`
}

// GenerateResponse is the generation endpoint result
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}
