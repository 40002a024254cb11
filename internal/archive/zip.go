package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"github.com/local/psdconvert/internal/storage"
)

// Pack builds a compressed archive in memory from the named files under
// dir and deletes the on-disk copies it packaged. A file that vanished
// between conversion and packaging is skipped without failing the
// archive. The archive only ever exists as a response payload; it is
// never written to disk.
func Pack(dir string, names []string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	var packed []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping converted file during packaging")
			continue
		}
		w, err := zw.Create(name)
		if err != nil {
			zw.Close()
			return nil, fmt.Errorf("add %s to archive: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write %s to archive: %w", name, err)
		}
		packed = append(packed, path)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}

	for _, path := range packed {
		storage.RemoveLogged(path)
	}

	return buf.Bytes(), nil
}

// DownloadName encodes the converted-file count into the suggested
// attachment filename.
func DownloadName(count int) string {
	return fmt.Sprintf("converted_%d_files.zip", count)
}
