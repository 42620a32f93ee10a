package mocks

import (
	"context"
	"io"

	"github.com/edugrade/segma/internal/pkg/api"
	gapi "github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/persistence"
	"github.com/edugrade/segma/internal/pkg/segments"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, name, r, size, contentType)
	return args.Error(0)
}

// LoadFile func mock
func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

func (m *Filer) Delete(ctx context.Context, fileName string) error {
	args := m.Called(ctx, fileName)
	return args.Error(0)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) InsertUpload(ctx context.Context, item *persistence.AudioUpload) error {
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *DB) LoadUpload(ctx context.Context, storageKey string) (*persistence.AudioUpload, error) {
	args := m.Called(ctx, storageKey)
	return to[*persistence.AudioUpload](args.Get(0)), args.Error(1)
}

func (m *DB) LoadUploadByID(ctx context.Context, id int64) (*persistence.AudioUpload, error) {
	args := m.Called(ctx, id)
	return to[*persistence.AudioUpload](args.Get(0)), args.Error(1)
}

func (m *DB) ListUploads(ctx context.Context, ownerID int64) ([]*persistence.AudioUpload, error) {
	args := m.Called(ctx, ownerID)
	return to[[]*persistence.AudioUpload](args.Get(0)), args.Error(1)
}

func (m *DB) UpdateSegments(ctx context.Context, storageKey, segmentsJSON string) error {
	args := m.Called(ctx, storageKey, segmentsJSON)
	return args.Error(0)
}

func (m *DB) DeleteUpload(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) Live(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Media is generative media client mock
type Media struct{ mock.Mock }

func (m *Media) StartUpload(ctx context.Context, displayName string, size int64, mimeType string) (string, error) {
	args := m.Called(ctx, displayName, size, mimeType)
	return args.String(0), args.Error(1)
}

func (m *Media) Transfer(ctx context.Context, sessionURL string, r io.Reader, size int64) (*gapi.File, error) {
	args := m.Called(ctx, sessionURL, r, size)
	return to[*gapi.File](args.Get(0)), args.Error(1)
}

func (m *Media) GetFile(ctx context.Context, name string) (*gapi.File, error) {
	args := m.Called(ctx, name)
	return to[*gapi.File](args.Get(0)), args.Error(1)
}

func (m *Media) Generate(ctx context.Context, fileURI, mimeType, prompt string) (string, error) {
	args := m.Called(ctx, fileURI, mimeType, prompt)
	return args.String(0), args.Error(1)
}

// Notifier is status push mock
type Notifier struct{ mock.Mock }

func (m *Notifier) Notify(key string, data api.StatusData) {
	m.Called(key, data)
}

// Segmenter is segmentation pipeline mock
type Segmenter struct{ mock.Mock }

func (m *Segmenter) Segment(ctx context.Context, key string) ([]segments.Segment, error) {
	args := m.Called(ctx, key)
	return to[[]segments.Segment](args.Get(0)), args.Error(1)
}

// Pipeline is batch pipeline mock
type Pipeline struct{ mock.Mock }

func (m *Pipeline) Upload(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *Pipeline) Segment(ctx context.Context, key string) ([]segments.Segment, error) {
	args := m.Called(ctx, key)
	return to[[]segments.Segment](args.Get(0)), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
