package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SupportAudioExt checks if audio ext is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a" || ext == ".aac"
}

var audioContentTypes = map[string]string{
	".wav": "audio/wav",
	".mp3": "audio/mp3",
	".mp4": "audio/mp4",
	".m4a": "audio/mp4",
	".aac": "audio/aac",
}

// AudioContentType maps a file extension to the declared audio content type.
// Unknown extensions get a generic octet stream.
func AudioContentType(fileName string) string {
	if res, ok := audioContentTypes[strings.ToLower(filepath.Ext(fileName))]; ok {
		return res
	}
	return "application/octet-stream"
}

// MakeStorageKey builds a fresh blob store key for an owner's upload.
// The random suffix guarantees no collision for same-named files.
func MakeStorageKey(ownerID int64, fileName string) (string, error) {
	fn, err := ValidateFileName(fileName)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("users/%d/uploads/%s-%s", ownerID, uuid.New().String(), fn), nil
}

// ValidateFileName drops any path part and rejects empty or hidden names
func ValidateFileName(fileName string) (string, error) {
	res := filepath.Base(strings.TrimSpace(fileName))
	if res == "" || res == "." || res == string(filepath.Separator) || strings.HasPrefix(res, ".") {
		return "", fmt.Errorf("wrong file name '%s'", fileName)
	}
	return res, nil
}
