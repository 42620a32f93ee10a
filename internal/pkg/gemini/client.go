package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/cenkalti/backoff/v4"
	"github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/utils"
)

const (
	hdrUploadProtocol      = "X-Goog-Upload-Protocol"
	hdrUploadCommand       = "X-Goog-Upload-Command"
	hdrUploadOffset        = "X-Goog-Upload-Offset"
	hdrUploadContentLength = "X-Goog-Upload-Header-Content-Length"
	hdrUploadContentType   = "X-Goog-Upload-Header-Content-Type"
	hdrUploadURL           = "X-Goog-Upload-URL"
)

// Client communicates with the generative media service
type Client struct {
	httpclient  *http.Client
	url         string
	key         string
	model       string
	timeout     time.Duration
	genTimeout  time.Duration
	sendTimeout time.Duration
	backoff     func() backoff.BackOff
}

// NewClient creates a media service client
func NewClient(url, key, model string) (*Client, error) {
	res := Client{}
	if url == "" {
		return nil, fmt.Errorf("no url")
	}
	if key == "" {
		return nil, fmt.Errorf("no key")
	}
	if model == "" {
		return nil, fmt.Errorf("no model")
	}
	res.url = strings.TrimSuffix(url, "/")
	res.key = key
	res.model = model
	res.timeout = time.Second * 50
	res.genTimeout = time.Minute * 2
	res.sendTimeout = time.Minute * 10
	res.httpclient = mediaHTTPClient()
	res.backoff = newSimpleBackoff
	return &res, nil
}

// StartUpload initiates the resumable upload handshake. It declares the
// total byte length and content type of the eventual payload and returns
// the session URL the bytes must go to.
func (cl *Client) StartUpload(ctx context.Context, displayName string, size int64, mimeType string) (string, error) {
	body, err := json.Marshal(map[string]any{"file": map[string]string{"display_name": displayName}})
	if err != nil {
		return "", utils.NewErrUploadInit(err)
	}
	res, err := goapp.InvokeWithBackoff(ctx, func() (string, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, cl.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/upload/v1beta/files?key=%s", cl.url, cl.key), bytes.NewReader(body))
		if err != nil {
			return "", false, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(hdrUploadProtocol, "resumable")
		req.Header.Set(hdrUploadCommand, "start")
		req.Header.Set(hdrUploadContentLength, strconv.FormatInt(size, 10))
		req.Header.Set(hdrUploadContentType, mimeType)
		goapp.Log.Info().Str("url", req.URL.Path).Str("method", req.Method).Msg("call")
		resp, err := cl.httpclient.Do(req)
		if err != nil {
			return "", goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer closeBody(resp)
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.Path, err)
			return "", goapp.IsRetryableCode(resp.StatusCode), err
		}
		sessionURL := resp.Header.Get(hdrUploadURL)
		if sessionURL == "" {
			return "", false, fmt.Errorf("no %s header in response", hdrUploadURL)
		}
		return sessionURL, false, nil
	}, cl.backoff())
	if err != nil {
		return "", utils.NewErrUploadInit(err)
	}
	return res, nil
}

// Transfer streams the full payload to the session URL in one pass. The
// command header marks the transfer as both upload and finalize, so no
// further chunk is expected - a failure means retrying the whole file.
func (cl *Client) Transfer(ctx context.Context, sessionURL string, r io.Reader, size int64) (*api.File, error) {
	ctx, cancelF := context.WithTimeout(ctx, cl.sendTimeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, sessionURL, r)
	if err != nil {
		return nil, utils.NewErrUploadTransfer(err)
	}
	req.ContentLength = size
	req.Header.Set(hdrUploadOffset, "0")
	req.Header.Set(hdrUploadCommand, "upload, finalize")
	goapp.Log.Info().Str("method", req.Method).Int64("size", size).Msg("transfer")
	resp, err := cl.httpclient.Do(req)
	if err != nil {
		return nil, utils.NewErrUploadTransfer(fmt.Errorf("can't call: %w", err))
	}
	defer closeBody(resp)
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return nil, utils.NewErrUploadTransfer(fmt.Errorf("can't invoke transfer: %w", err))
	}
	var respData api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return nil, utils.NewErrUploadTransfer(fmt.Errorf("can't decode response: %w", err))
	}
	if respData.File.Name == "" {
		return nil, utils.NewErrUploadTransfer(fmt.Errorf("no file in response"))
	}
	return &respData.File, nil
}

// GetFile returns the remote file's processing state by name
func (cl *Client) GetFile(ctx context.Context, name string) (*api.File, error) {
	return goapp.InvokeWithBackoff(ctx, func() (*api.File, bool, error) {
		ctx, cancelF := context.WithTimeout(ctx, cl.timeout)
		defer cancelF()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			fmt.Sprintf("%s/v1beta/%s?key=%s", cl.url, name, cl.key), nil)
		if err != nil {
			return nil, false, err
		}
		resp, err := cl.httpclient.Do(req)
		if err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't call: %w", err)
		}
		defer closeBody(resp)
		if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
			err = fmt.Errorf("can't invoke '%s': %w", req.URL.Path, err)
			return nil, goapp.IsRetryableCode(resp.StatusCode), err
		}
		res := &api.File{}
		if err := json.NewDecoder(resp.Body).Decode(res); err != nil {
			return nil, goapp.IsRetryableErr(err), fmt.Errorf("can't unmarshal: %w", err)
		}
		return res, false, nil
	}, cl.backoff())
}

// Generate issues one generation request referencing an active file handle
// and returns the joined response text
func (cl *Client) Generate(ctx context.Context, fileURI, mimeType, prompt string) (string, error) {
	reqData := api.GenerateRequest{Contents: []api.Content{{Parts: []api.Part{
		{Text: prompt},
		{FileData: &api.FileData{MimeType: mimeType, FileURI: fileURI}},
	}}}}
	body, err := json.Marshal(reqData)
	if err != nil {
		return "", utils.NewErrGeneration(err)
	}
	ctx, cancelF := context.WithTimeout(ctx, cl.genTimeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", cl.url, cl.model, cl.key), bytes.NewReader(body))
	if err != nil {
		return "", utils.NewErrGeneration(err)
	}
	req.Header.Set("Content-Type", "application/json")
	goapp.Log.Info().Str("url", req.URL.Path).Str("method", req.Method).Msg("call")
	resp, err := cl.httpclient.Do(req)
	if err != nil {
		return "", utils.NewErrGeneration(fmt.Errorf("can't call: %w", err))
	}
	defer closeBody(resp)
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return "", utils.NewErrGeneration(fmt.Errorf("can't invoke generate: %w", err))
	}
	var respData api.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", utils.NewErrGeneration(fmt.Errorf("can't decode response: %w", err))
	}
	if len(respData.Candidates) == 0 {
		return "", utils.NewErrGeneration(fmt.Errorf("no candidates in response"))
	}
	var sb strings.Builder
	for _, p := range respData.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
	_ = resp.Body.Close()
}

func mediaHTTPClient() *http.Client {
	return &http.Client{Transport: newTransport()}
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
