package server

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marwanelaks/optimize"
	"github.com/Marwanelaks/optimize/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(cfg Config) *Server {
	return New(optimize.New(optimize.WithConcurrency(2)), nil, cfg)
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestServer_Healthz(t *testing.T) {
	router := newTestServer(Config{}).Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestServer_Upload(t *testing.T) {
	archive := testutil.BuildZip(
		testutil.Entry{Name: "index.html", Data: []byte("<!DOCTYPE html><html><body>  <p>hello</p>  </body></html>")},
		testutil.Entry{Name: "site.css", Data: []byte("a {\n    color: red;\n}\n")},
	)
	body, contentType := multipartBody(t, "file", "site.zip", archive)

	router := newTestServer(Config{}).Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))

	// The report travels in the header next to the binary archive.
	var report optimize.Report
	require.NoError(t, json.Unmarshal([]byte(w.Header().Get(ReportHeader)), &report))
	assert.Equal(t, uint64(2), report.TotalFiles)
	assert.Equal(t, report.TotalFiles, report.FilesOptimized+report.FilesFailed+report.FilesSkipped)

	// The body is a readable zip with one entry per input file.
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	assert.Len(t, zr.File, 2)
}

func TestServer_Upload_RawBody(t *testing.T) {
	archive := testutil.BuildZip(
		testutil.Entry{Name: "site.css", Data: []byte("a { color: red; }")},
	)

	router := newTestServer(Config{}).Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/upload", bytes.NewReader(archive))
	req.Header.Set("Content-Type", "application/zip")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(ReportHeader))
}

func TestServer_Upload_UnsafePath(t *testing.T) {
	body, contentType := multipartBody(t, "file", "evil.zip", testutil.TraversalZip())

	router := newTestServer(Config{}).Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsafe_path")
}

func TestServer_Upload_Corrupt(t *testing.T) {
	body, contentType := multipartBody(t, "file", "bad.zip", []byte("not a zip"))

	router := newTestServer(Config{}).Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "corrupt_archive")
}

func TestServer_Upload_TooLarge(t *testing.T) {
	archive := testutil.BuildZip(
		testutil.Entry{Name: "big.bin", Data: make([]byte, 2048)},
	)
	body, contentType := multipartBody(t, "file", "big.zip", archive)

	// Any zip exceeds a 16-byte ceiling, compressed or not.
	router := newTestServer(Config{MaxUploadBytes: 16}).Router()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/upload", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "archive_too_large")
}

func TestServer_GitHub_BadBody(t *testing.T) {
	router := newTestServer(Config{}).Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/github", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad_request")
}

func TestServer_GitHub_MissingTarget(t *testing.T) {
	router := newTestServer(Config{}).Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/optimize/github", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "url or owner/repo required")
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantKind   string
	}{
		{optimize.ErrArchiveTooLarge, http.StatusRequestEntityTooLarge, "archive_too_large"},
		{optimize.ErrCorruptArchive, http.StatusBadRequest, "corrupt_archive"},
		{optimize.ErrEmptyArchive, http.StatusBadRequest, "empty_archive"},
		{optimize.ErrUnsafePath, http.StatusBadRequest, "unsafe_path"},
		{optimize.ErrSourceFetchFailed, http.StatusBadGateway, "source_fetch_failed"},
		{optimize.ErrBatchTimeout, http.StatusGatewayTimeout, "batch_timeout"},
		{optimize.ErrBatchAborted, http.StatusGatewayTimeout, "batch_aborted"},
		{assert.AnError, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.wantKind, func(t *testing.T) {
			status, kind := classifyError(optimize.NewPipelineError("test", "", tt.err))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantKind, kind)
		})
	}
}
