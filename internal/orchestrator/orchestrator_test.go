package orchestrator

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/psdconvert/internal/config"
	"github.com/local/psdconvert/internal/filetype"
	"github.com/local/psdconvert/internal/storage"
	"github.com/local/psdconvert/internal/sweeper"
	"github.com/local/psdconvert/internal/validate"
)

const mib = 1024 * 1024

// fakeRasterizer simulates the external tool: inputs whose base name is
// listed in fail report failure, everything else produces an output file.
type fakeRasterizer struct {
	fail map[string]bool
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, inputPath, outputPath string) bool {
	if f.fail[filepath.Base(inputPath)] {
		return false
	}
	if err := os.WriteFile(outputPath, []byte("png-bytes"), 0o644); err != nil {
		return false
	}
	return true
}

func testLimits() config.LimitsConfig {
	return config.LimitsConfig{
		MaxTotalRequestSize: 500 * mib,
		MaxSingleFileSize:   100 * mib,
		MaxFilesCount:       100,
	}
}

func newTestMux(t *testing.T, ras Rasterizer, limits config.LimitsConfig) (*http.ServeMux, storage.Dirs) {
	t.Helper()
	dirs := storage.Dirs{
		Upload:    t.TempDir(),
		Converted: t.TempDir(),
	}
	o := New(Dependencies{
		Rasterizer: ras,
		Validator:  validate.New(limits),
		Sweeper:    sweeper.New(time.Hour, dirs.Upload, dirs.Converted),
		Detector:   filetype.New(),
		Dirs:       dirs,
		Limits:     limits,
		Conversion: config.ConversionConfig{Binary: "convert", Timeout: 30 * time.Second},
	})
	mux := http.NewServeMux()
	o.RegisterRoutes(mux)
	return mux, dirs
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postConvert(t *testing.T, mux *http.ServeMux, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, files)
	req := httptest.NewRequest(http.MethodPost, "/convert", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestConvertSingleFile(t *testing.T) {
	mux, dirs := newTestMux(t, &fakeRasterizer{}, testLimits())

	w := postConvert(t, mux, map[string]string{"photo.psd": "8BPS fake layered data"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=converted_1_files.zip", w.Header().Get("Content-Disposition"))

	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "photo.png", zr.File[0].Name)

	rc, err := zr.File[0].Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "png-bytes", string(data))

	// both working files were consumed by the request
	assertDirEmpty(t, dirs.Upload)
	assertDirEmpty(t, dirs.Converted)
}

func TestConvertSanitizesFilenames(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())

	w := postConvert(t, mux, map[string]string{"my photo (1).psd": "data"})

	require.Equal(t, http.StatusOK, w.Code)
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "my_photo__1_.png", zr.File[0].Name)
}

func TestConvertPartialFailure(t *testing.T) {
	ras := &fakeRasterizer{fail: map[string]bool{"broken.psd": true}}
	mux, dirs := newTestMux(t, ras, testLimits())

	w := postConvert(t, mux, map[string]string{
		"good.psd":   "data",
		"broken.psd": "data",
	})

	// one success is enough for an archive
	require.Equal(t, http.StatusOK, w.Code)
	zr, err := zip.NewReader(bytes.NewReader(w.Body.Bytes()), int64(w.Body.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)
	assert.Equal(t, "good.png", zr.File[0].Name)

	assertDirEmpty(t, dirs.Upload)
}

func TestConvertTotalFailure(t *testing.T) {
	ras := &fakeRasterizer{fail: map[string]bool{"a.psd": true, "b.psd": true}}
	mux, dirs := newTestMux(t, ras, testLimits())

	w := postConvert(t, mux, map[string]string{"a.psd": "x", "b.psd": "y"})

	require.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, "No files were successfully converted", resp["error"])
	failedList, ok := resp["failed_files"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"a.psd", "b.psd"}, failedList)

	// failed inputs are still cleaned up
	assertDirEmpty(t, dirs.Upload)
}

func TestConvertValidationFailure(t *testing.T) {
	mux, dirs := newTestMux(t, &fakeRasterizer{}, testLimits())

	w := postConvert(t, mux, map[string]string{"image.jpg": "not a psd"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeJSON(t, w)
	assert.Equal(t, "Validation failed", resp["error"])
	details, ok := resp["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)

	// rejection happens before any disk I/O
	assertDirEmpty(t, dirs.Upload)
}

func TestConvertTooManyFiles(t *testing.T) {
	limits := testLimits()
	limits.MaxFilesCount = 2
	mux, _ := newTestMux(t, &fakeRasterizer{}, limits)

	w := postConvert(t, mux, map[string]string{
		"a.psd": "x", "b.psd": "y", "c.psd": "z",
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeJSON(t, w)
	details, ok := resp["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Contains(t, details[0], "too many files")
}

func TestConvertNoFilesField(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No files provided", decodeJSON(t, w)["error"])
}

func TestConvertMethodNotAllowed(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())
	req := httptest.NewRequest(http.MethodGet, "/convert", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestAPIConvertAlias(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())

	body, contentType := multipartBody(t, map[string]string{"photo.psd": "data"})
	req := httptest.NewRequest(http.MethodPost, "/api/convert", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
}

func TestConvertSweepsStaleFiles(t *testing.T) {
	mux, dirs := newTestMux(t, &fakeRasterizer{}, testLimits())

	stale := filepath.Join(dirs.Upload, "stale.psd")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0o644))
	stamp := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, stamp, stamp))

	fresh := filepath.Join(dirs.Converted, "fresh.png")
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0o644))

	postConvert(t, mux, map[string]string{"photo.psd": "data"})

	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "stale working file must be swept at request start")
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "fresh file survives the sweep")
}

func TestConfigEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeJSON(t, w)
	assert.EqualValues(t, 500, resp["max_total_request_size_mb"])
	assert.EqualValues(t, 100, resp["max_single_file_size_mb"])
	assert.EqualValues(t, 100, resp["max_files_count"])
	assert.EqualValues(t, 30, resp["conversion_timeout_seconds"])
}

func TestHealthEndpoint(t *testing.T) {
	mux, _ := newTestMux(t, &fakeRasterizer{}, testLimits())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decodeJSON(t, w)["status"])
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
