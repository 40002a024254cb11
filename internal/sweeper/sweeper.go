package sweeper

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/psdconvert/internal/metrics"
)

// Sweeper removes stale files from the working directories. It runs
// synchronously at the top of each conversion request rather than on a
// background timer, so an idle service touches no disk.
type Sweeper struct {
	dirs   []string
	maxAge time.Duration
}

// New returns a sweeper over the given directories with the given
// retention age.
func New(maxAge time.Duration, dirs ...string) *Sweeper {
	return &Sweeper{dirs: dirs, maxAge: maxAge}
}

// Sweep deletes every regular file older than the retention age from
// the working directories. Errors (missing directory, permission
// issues) are logged and swallowed; sweeping never aborts request
// handling.
func (s *Sweeper) Sweep() {
	now := time.Now()
	removed := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("sweep: cannot read working dir")
			continue
		}
		for _, e := range entries {
			if !e.Type().IsRegular() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if now.Sub(info.ModTime()) <= s.maxAge {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := os.Remove(path); err != nil {
				log.Warn().Err(err).Str("file", path).Msg("sweep: remove failed")
				continue
			}
			removed++
			log.Info().Str("file", path).Msg("cleaned up old file")
		}
	}
	if removed > 0 {
		metrics.AddSwept(removed)
	}
}
