package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/edugrade/segma/internal/pkg/api"
	"github.com/edugrade/segma/internal/pkg/segments"
)

// Client talks to the segmentation service over HTTP.
// It implements the batch pipeline for local files.
type Client struct {
	httpclient     *http.Client
	url            string
	ownerID        int64
	uploadTimeout  time.Duration
	segmentTimeout time.Duration
	backoff        func() backoff.BackOff
}

// NewClient creates a segmentation service client
func NewClient(url string, ownerID int64) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	res.url = url
	res.ownerID = ownerID
	res.uploadTimeout = time.Minute * 10
	// segmentation covers a remote relay, state polling and generation
	res.segmentTimeout = time.Minute * 15
	res.httpclient = &http.Client{Transport: newTransport()}
	res.backoff = newSimpleBackoff
	return &res, nil
}

// Upload posts one local audio file and returns its storage key
func (c *Client) Upload(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("can't open '%s': %w", path, err)
	}
	defer file.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(api.PrmFile, filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("can't add file to request: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("can't add file content to request: %w", err)
	}
	writer.Close()

	return goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		req, err := http.NewRequest(http.MethodPost, c.url+"/upload", bytes.NewReader(body.Bytes()))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", writer.FormDataContentType())
		req.Header.Set(api.HdrOwnerID, strconv.FormatInt(c.ownerID, 10))

		ctx, cancelF := context.WithTimeout(ctx, c.uploadTimeout)
		defer cancelF()
		req = req.WithContext(ctx)
		goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
		resp, err := c.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer closeBody(resp)
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		var respData api.UploadResult
		if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
			return "", true, fmt.Errorf("can't decode response: %w", err)
		}
		if respData.Key == "" {
			return "", false, fmt.Errorf("can't get key from response")
		}
		return respData.Key, false, nil
	}, c.backoff())
}

// Segment asks the service to segment an uploaded file.
// No retries - the call itself is long and the service is not idempotent
// about remote relay costs.
func (c *Client) Segment(ctx context.Context, key string) ([]segments.Segment, error) {
	b, err := json.Marshal(api.SegmentRequest{Key: key})
	if err != nil {
		return nil, fmt.Errorf("can't marshal request: %w", err)
	}
	ctx, cancelF := context.WithTimeout(ctx, c.segmentTimeout)
	defer cancelF()
	req, err := http.NewRequest(http.MethodPost, c.url+"/segment", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(ctx)
	goapp.Log.Info().Str("url", req.URL.String()).Str("method", req.Method).Msg("call")
	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't call: %w", err)
	}
	defer closeBody(resp)
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, fmt.Errorf("can't invoke '%s': %w", req.URL.String(), err)
	}
	var respData api.SegmentResult
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, fmt.Errorf("can't decode response: %w", err)
	}
	return respData.Segments, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
	_ = resp.Body.Close()
}

func newTransport() http.RoundTripper {
	// default roundripper is not well suited for our case
	// it has just 2 idle connections per host, so try to tune a bit
	res := http.DefaultTransport.(*http.Transport).Clone()
	res.MaxConnsPerHost = 100
	res.MaxIdleConns = 50
	res.MaxIdleConnsPerHost = 50
	res.IdleConnTimeout = 90 * time.Second
	return res
}

func newSimpleBackoff() backoff.BackOff {
	res := backoff.NewExponentialBackOff()
	return backoff.WithMaxRetries(res, 3)
}
