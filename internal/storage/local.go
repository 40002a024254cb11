package storage

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/local/psdconvert/internal/config"
)

// Dirs holds the two transient working directories. Files placed here
// are either consumed by the request that created them or reclaimed by
// the retention sweeper.
type Dirs struct {
	Upload    string
	Converted string
}

// NewDirs builds the working directory pair from configuration.
func NewDirs(cfg config.StorageConfig) Dirs {
	return Dirs{Upload: cfg.UploadDir, Converted: cfg.ConvertedDir}
}

// Ensure creates both working directories if missing.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Upload, d.Converted} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create working dir %s: %w", dir, err)
		}
	}
	return nil
}

// Save writes the uploaded bytes to path, overwriting any same-named
// prior file.
func Save(path string, src io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return out.Close()
}

// RemoveLogged deletes a working file, logging but never propagating
// failures. Cleanup is best-effort on every exit path.
func RemoveLogged(path string) {
	if err := os.Remove(path); err != nil {
		log.Warn().Err(err).Str("file", path).Msg("failed to remove working file")
	}
}
