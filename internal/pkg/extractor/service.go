package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/edugrade/segma/internal/pkg/api"
	gapi "github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/persistence"
	"github.com/edugrade/segma/internal/pkg/poller"
	"github.com/edugrade/segma/internal/pkg/segments"
	"github.com/edugrade/segma/internal/pkg/status"
	"github.com/edugrade/segma/internal/pkg/utils"
)

// ErrNotFound indicates there is no upload row for the given storage key
var ErrNotFound = errors.New("upload not found")

// Filer retrieves blobs
type Filer interface {
	LoadFile(ctx context.Context, name string) (io.ReadSeekCloser, error)
}

// DB provides persistence functionality
type DB interface {
	LoadUpload(ctx context.Context, storageKey string) (*persistence.AudioUpload, error)
	UpdateSegments(ctx context.Context, storageKey, segmentsJSON string) error
}

// Media talks to the generative media service
type Media interface {
	StartUpload(ctx context.Context, displayName string, size int64, mimeType string) (string, error)
	Transfer(ctx context.Context, sessionURL string, r io.Reader, size int64) (*gapi.File, error)
	GetFile(ctx context.Context, name string) (*gapi.File, error)
	Generate(ctx context.Context, fileURI, mimeType, prompt string) (string, error)
}

// Notifier pushes status updates to subscribed clients
type Notifier interface {
	Notify(key string, data api.StatusData)
}

// Segmenter runs one audio file through the segmentation pipeline
type Segmenter struct {
	filer    Filer
	db       DB
	media    Media
	notifier Notifier
	pollOpts poller.Opts
}

// NewSegmenter creates a segmenter instance
func NewSegmenter(filer Filer, db DB, media Media, notifier Notifier) (*Segmenter, error) {
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if media == nil {
		return nil, fmt.Errorf("no media client")
	}
	return &Segmenter{filer: filer, db: db, media: media, notifier: notifier,
		pollOpts: poller.DefaultOpts()}, nil
}

const segmentPrompt = `This audio is an English listening comprehension test recording.
Locate the start positions of all 10 question items.
Part 1 contains 5 short conversations (items 1-5), Part 2 contains 5 long conversations or passages (items 6-10).
If an item's audio is read more than once, give the start time of the first reading.
Respond with only a JSON object of the shape
{"segments": [{"id": 1, "startTime": 12.5, "label": "Conversation 1"}]}
with exactly 10 segments, ids 1 to 10, startTime in seconds from the beginning of the file.`

// Segment relays the stored audio to the media service, waits for it to
// become active, requests the segment analysis and persists the validated
// result. The row's segments field is only written on full success.
func (s *Segmenter) Segment(ctx context.Context, key string) (res []segments.Segment, err error) {
	defer goapp.Estimate("segment method")()
	defer func() {
		if err != nil {
			s.notify(key, status.Failed, err.Error())
		}
	}()
	rec, err := s.db.LoadUpload(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("can't load upload: %w", err)
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	goapp.Log.Info().Str("key", goapp.Sanitize(key)).Str("file", goapp.Sanitize(rec.Filename)).Msg("segmenting")

	s.notify(key, status.Uploading, "")
	file, err := s.filer.LoadFile(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("can't load file: %w", err)
	}
	defer file.Close()
	size, err := streamSize(file)
	if err != nil {
		return nil, fmt.Errorf("can't get file size: %w", err)
	}
	mime := utils.AudioContentType(rec.Filename)

	sessionURL, err := s.media.StartUpload(ctx, rec.Filename, size, mime)
	if err != nil {
		return nil, err
	}
	rf, err := s.media.Transfer(ctx, sessionURL, file, size)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Str("name", rf.Name).Str("state", rf.State).Msg("uploaded to media service")

	s.notify(key, status.Processing, "")
	rf, err = poller.WaitActive(ctx, s.media, rf, s.pollOpts)
	if err != nil {
		return nil, err
	}

	text, err := s.media.Generate(ctx, rf.URI, mime, segmentPrompt)
	if err != nil {
		return nil, err
	}
	res, err = segments.Decode(text)
	if err != nil {
		return nil, err
	}
	if err = segments.Validate(res); err != nil {
		return nil, err
	}
	segJSON, err := segments.Marshal(res)
	if err != nil {
		return nil, err
	}
	if err = s.db.UpdateSegments(ctx, key, segJSON); err != nil {
		return nil, fmt.Errorf("can't save segments: %w", err)
	}
	s.notify(key, status.Done, "")
	goapp.Log.Info().Str("key", goapp.Sanitize(key)).Msg("segmentation completed")
	return res, nil
}

func (s *Segmenter) notify(key string, st status.Status, errStr string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(key, api.StatusData{Key: key, Status: st.String(), Error: errStr})
}

// streamSize measures a seekable stream and rewinds it
func streamSize(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	return size, nil
}
