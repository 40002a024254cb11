package orchestrator

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/local/psdconvert/internal/archive"
	"github.com/local/psdconvert/internal/config"
	"github.com/local/psdconvert/internal/filetype"
	"github.com/local/psdconvert/internal/metrics"
	"github.com/local/psdconvert/internal/sanitize"
	"github.com/local/psdconvert/internal/storage"
	"github.com/local/psdconvert/internal/sweeper"
	"github.com/local/psdconvert/internal/validate"
)

// Rasterizer converts the first layer of a layered-image file into a
// flat image on disk. Implementations report success as a plain bool
// and must not leave a child process running past their deadline.
type Rasterizer interface {
	Rasterize(ctx context.Context, inputPath, outputPath string) bool
}

// Dependencies wires the components one conversion request flows through.
type Dependencies struct {
	Rasterizer Rasterizer
	Validator  *validate.Rules
	Sweeper    *sweeper.Sweeper
	Detector   *filetype.Detector
	Dirs       storage.Dirs
	Limits     config.LimitsConfig
	Conversion config.ConversionConfig
}

type Orchestrator struct {
	deps Dependencies
}

func New(deps Dependencies) *Orchestrator {
	return &Orchestrator{deps: deps}
}

func (o *Orchestrator) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/convert", o.handleConvert)
	mux.HandleFunc("/api/convert", o.handleConvert)
	mux.HandleFunc("/config", o.handleConfig)
	mux.HandleFunc("/health", o.handleHealth)
}

// handleConvert accepts a multipart batch under the "files" field,
// converts each allowed file sequentially and responds with a single
// zip archive of the successful outputs.
func (o *Orchestrator) handleConvert(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	reqID := uuid.NewString()

	// Opportunistic cleanup of stale working files before any new ones land.
	o.deps.Sweeper.Sweep()

	r.Body = http.MaxBytesReader(w, r.Body, o.deps.Limits.MaxTotalRequestSize)
	if err := r.ParseMultipartForm(64 << 20); err != nil { // 64MB max memory before temp files
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid multipart form"})
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No files provided"})
		return
	}
	if files[0].Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No selected files"})
		return
	}

	batch := make([]validate.File, 0, len(files))
	for _, hdr := range files {
		batch = append(batch, validate.File{Name: hdr.Filename, Size: hdr.Size})
	}
	if errs := o.deps.Validator.Check(batch); len(errs) > 0 {
		log.Info().Str("req_id", reqID).Strs("details", errs).Msg("batch rejected")
		metrics.IncBatch("rejected", len(files))
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Validation failed", "details": errs})
		return
	}

	log.Info().Str("req_id", reqID).Int("files", len(files)).Msg("conversion batch accepted")

	converted, failed := o.processBatch(r.Context(), reqID, files)

	if len(converted) == 0 {
		log.Warn().Str("req_id", reqID).Strs("failed", failed).Msg("no files converted")
		metrics.IncBatch("failed", len(files))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":        "No files were successfully converted",
			"failed_files": failed,
		})
		return
	}

	body, err := archive.Pack(o.deps.Dirs.Converted, converted)
	if err != nil {
		log.Error().Err(err).Str("req_id", reqID).Msg("archive packaging failed")
		metrics.IncBatch("failed", len(files))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "failed to build archive"})
		return
	}

	metrics.IncBatch("ok", len(files))
	log.Info().Str("req_id", reqID).
		Int("converted", len(converted)).
		Int("failed", len(failed)).
		Int("archive_bytes", len(body)).
		Msg("batch complete")

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", "attachment; filename="+archive.DownloadName(len(converted)))
	_, _ = w.Write(body)
}

// processBatch runs save → convert → cleanup-of-input for every
// allowed file, strictly in submission order. Per-file conversion
// failures never abort the batch. Same-named inputs collide on disk
// with last-write-wins semantics; the request id in the logs makes
// that diagnosable.
func (o *Orchestrator) processBatch(ctx context.Context, reqID string, files []*multipart.FileHeader) (converted, failed []string) {
	for _, hdr := range files {
		if !validate.Allowed(hdr.Filename) {
			continue
		}
		name := sanitize.Filename(hdr.Filename)
		inputPath := filepath.Join(o.deps.Dirs.Upload, name)

		src, err := hdr.Open()
		if err != nil {
			log.Error().Err(err).Str("req_id", reqID).Str("file", name).Msg("cannot open upload")
			failed = append(failed, name)
			continue
		}
		err = storage.Save(inputPath, src)
		src.Close()
		if err != nil {
			log.Error().Err(err).Str("req_id", reqID).Str("file", name).Msg("cannot save upload")
			failed = append(failed, name)
			continue
		}

		if !o.deps.Detector.LooksLikePSD(inputPath) {
			log.Warn().Str("req_id", reqID).Str("file", name).Msg("content does not look like a Photoshop document")
		}

		outName := strings.TrimSuffix(name, filepath.Ext(name)) + ".png"
		outputPath := filepath.Join(o.deps.Dirs.Converted, outName)

		start := time.Now()
		ok := o.deps.Rasterizer.Rasterize(ctx, inputPath, outputPath)
		metrics.ObserveConversion(ok, time.Since(start))

		if ok {
			converted = append(converted, outName)
		} else {
			failed = append(failed, name)
		}

		storage.RemoveLogged(inputPath)
	}
	return converted, failed
}

func (o *Orchestrator) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"max_total_request_size_mb":  o.deps.Limits.MaxTotalRequestSize / (1024 * 1024),
		"max_single_file_size_mb":    o.deps.Limits.MaxSingleFileSize / (1024 * 1024),
		"max_files_count":            o.deps.Limits.MaxFilesCount,
		"conversion_timeout_seconds": int(o.deps.Conversion.Timeout / time.Second),
	})
}

func (o *Orchestrator) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
