package gemini

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/edugrade/segma/internal/pkg/gemini/api"
	"github.com/edugrade/segma/internal/pkg/test"
	"github.com/edugrade/segma/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testResp struct {
	code    int
	resp    string
	headers map[string]string
}

type testReq struct {
	resp    string
	URL     string
	headers http.Header
}

func newTestR(code int, resp string) testResp {
	return testResp{code: code, resp: resp}
}

func newTestReq(req *http.Request) testReq {
	b, _ := io.ReadAll(req.Body)
	return testReq{URL: req.URL.String(), resp: string(b), headers: req.Header.Clone()}
}

func initTestServer(t *testing.T, rData map[string]testResp) (*Client, *httptest.Server, *[]testReq) {
	t.Helper()
	resRequest := make([]testReq, 0)
	rLock := &sync.Mutex{}
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		rLock.Lock()
		defer rLock.Unlock()
		resRequest = append(resRequest, newTestReq(req))
		resp, f := rData[req.URL.String()]
		if f {
			for k, v := range resp.headers {
				rw.Header().Set(k, v)
			}
			rw.WriteHeader(resp.code)
			_, _ = rw.Write([]byte(resp.resp))
		} else {
			rw.WriteHeader(http.StatusNotFound)
		}
	}))
	// Use Client & URL from our local test server
	cl := Client{}
	cl.httpclient = server.Client()
	cl.url = server.URL
	cl.key = "k"
	cl.model = "m"
	cl.timeout = time.Second
	cl.genTimeout = time.Second
	cl.sendTimeout = time.Second * 5
	cl.backoff = func() backoff.BackOff {
		return &backoff.StopBackOff{}
	}
	t.Cleanup(func() { server.Close() })
	return &cl, server, &resRequest
}

func TestNewClient(t *testing.T) {
	cl, err := NewClient("http://olia", "key", "model")
	require.Nil(t, err)
	require.NotNil(t, cl)
	_, err = NewClient("", "key", "model")
	assert.NotNil(t, err)
	_, err = NewClient("http://olia", "", "model")
	assert.NotNil(t, err)
	_, err = NewClient("http://olia", "key", "")
	assert.NotNil(t, err)
}

func TestStartUpload(t *testing.T) {
	cl, server, tReq := initTestServer(t, map[string]testResp{
		"/upload/v1beta/files?key=k": {code: 200, resp: "",
			headers: map[string]string{"X-Goog-Upload-URL": "http://olia/session"}},
	})
	defer server.Close()

	res, err := cl.StartUpload(test.Ctx(t), "olia.mp3", 1000, "audio/mp3")
	require.Nil(t, err)
	assert.Equal(t, "http://olia/session", res)
	require.Equal(t, 1, len(*tReq))
	h := (*tReq)[0].headers
	assert.Equal(t, "resumable", h.Get("X-Goog-Upload-Protocol"))
	assert.Equal(t, "start", h.Get("X-Goog-Upload-Command"))
	assert.Equal(t, "1000", h.Get("X-Goog-Upload-Header-Content-Length"))
	assert.Equal(t, "audio/mp3", h.Get("X-Goog-Upload-Header-Content-Type"))
	assert.Contains(t, (*tReq)[0].resp, "olia.mp3")
}

func TestStartUpload_NoSessionHeader(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/upload/v1beta/files?key=k": newTestR(200, ""),
	})
	defer server.Close()

	_, err := cl.StartUpload(test.Ctx(t), "olia.mp3", 1000, "audio/mp3")
	require.NotNil(t, err)
	var errInit *utils.ErrUploadInit
	assert.True(t, errors.As(err, &errInit))
}

func TestStartUpload_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/upload/v1beta/files?key=k": newTestR(400, ""),
	})
	defer server.Close()

	_, err := cl.StartUpload(test.Ctx(t), "olia.mp3", 1000, "audio/mp3")
	require.NotNil(t, err)
	var errInit *utils.ErrUploadInit
	assert.True(t, errors.As(err, &errInit))
}

func TestTransfer(t *testing.T) {
	cl, server, tReq := initTestServer(t, map[string]testResp{
		"/session": newTestR(200, `{"file": {"name": "files/olia", "uri": "https://olia/files/olia", "state": "PROCESSING"}}`),
	})
	defer server.Close()

	res, err := cl.Transfer(test.Ctx(t), server.URL+"/session", strings.NewReader("audio bytes"), 11)
	require.Nil(t, err)
	assert.Equal(t, "files/olia", res.Name)
	assert.Equal(t, api.StateProcessing, res.State)
	require.Equal(t, 1, len(*tReq))
	h := (*tReq)[0].headers
	assert.Equal(t, "upload, finalize", h.Get("X-Goog-Upload-Command"))
	assert.Equal(t, "0", h.Get("X-Goog-Upload-Offset"))
	assert.Equal(t, "audio bytes", (*tReq)[0].resp)
}

func TestTransfer_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/session": newTestR(500, ""),
	})
	defer server.Close()

	_, err := cl.Transfer(test.Ctx(t), server.URL+"/session", strings.NewReader("audio bytes"), 11)
	require.NotNil(t, err)
	var errTransfer *utils.ErrUploadTransfer
	assert.True(t, errors.As(err, &errTransfer))
}

func TestTransfer_NoFile(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/session": newTestR(200, `{}`),
	})
	defer server.Close()

	_, err := cl.Transfer(test.Ctx(t), server.URL+"/session", strings.NewReader("audio bytes"), 11)
	require.NotNil(t, err)
	var errTransfer *utils.ErrUploadTransfer
	assert.True(t, errors.As(err, &errTransfer))
}

func TestGetFile(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/v1beta/files/olia?key=k": newTestR(200, `{"name": "files/olia", "state": "ACTIVE"}`),
	})
	defer server.Close()

	res, err := cl.GetFile(test.Ctx(t), "files/olia")
	require.Nil(t, err)
	assert.Equal(t, api.StateActive, res.State)
}

func TestGetFile_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/v1beta/files/olia?key=k": newTestR(500, ""),
	})
	defer server.Close()

	_, err := cl.GetFile(test.Ctx(t), "files/olia")
	assert.NotNil(t, err)
}

func TestGenerate(t *testing.T) {
	cl, server, tReq := initTestServer(t, map[string]testResp{
		"/v1beta/models/m:generateContent?key=k": newTestR(200,
			`{"candidates": [{"content": {"parts": [{"text": "{\"segments\""}, {"text": ": []}"}]}}]}`),
	})
	defer server.Close()

	res, err := cl.Generate(test.Ctx(t), "https://olia/files/olia", "audio/mp3", "find segments")
	require.Nil(t, err)
	assert.Equal(t, `{"segments": []}`, res)
	require.Equal(t, 1, len(*tReq))
	assert.Contains(t, (*tReq)[0].resp, "find segments")
	assert.Contains(t, (*tReq)[0].resp, "https://olia/files/olia")
}

func TestGenerate_NoCandidates(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/v1beta/models/m:generateContent?key=k": newTestR(200, `{"candidates": []}`),
	})
	defer server.Close()

	_, err := cl.Generate(test.Ctx(t), "https://olia/files/olia", "audio/mp3", "find segments")
	require.NotNil(t, err)
	var errGen *utils.ErrGeneration
	assert.True(t, errors.As(err, &errGen))
}

func TestGenerate_Fails(t *testing.T) {
	cl, server, _ := initTestServer(t, map[string]testResp{
		"/v1beta/models/m:generateContent?key=k": newTestR(503, ""),
	})
	defer server.Close()

	_, err := cl.Generate(test.Ctx(t), "https://olia/files/olia", "audio/mp3", "find segments")
	require.NotNil(t, err)
	var errGen *utils.ErrGeneration
	assert.True(t, errors.As(err, &errGen))
}
