package converter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/psdconvert/internal/config"
)

// ImageMagick rasterizes layered-image files by shelling out to the
// ImageMagick convert binary. The source format is treated as opaque:
// only the first layer is requested, via the "[0]" frame selector.
type ImageMagick struct {
	binary  string
	timeout time.Duration
}

// NewImageMagick creates a converter bound to the configured binary and timeout.
func NewImageMagick(cfg config.ConversionConfig) *ImageMagick {
	return &ImageMagick{binary: cfg.Binary, timeout: cfg.Timeout}
}

// CheckInstallation verifies the rasterizer binary is available on PATH.
func (m *ImageMagick) CheckInstallation() error {
	cmd := exec.Command(m.binary, "-version")
	output, err := cmd.Output()
	if err != nil {
		return fmt.Errorf("%s not found in PATH: %w", m.binary, err)
	}

	version := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	log.Info().Str("version", version).Msg("rasterizer found")
	return nil
}

// Rasterize converts the first layer of the input file into a flat image
// at outputPath. It reports success as a plain bool: non-zero exit,
// launch failure and timeout all map to false with a logged diagnostic.
// On timeout the child process is killed, not left running. A single
// attempt is made per call.
func (m *ImageMagick) Rasterize(ctx context.Context, inputPath, outputPath string) bool {
	startTime := time.Now()

	cctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	// exec.CommandContext kills the child when the deadline expires.
	// WaitDelay keeps Wait from hanging on pipes held open by any
	// grandchildren the kill did not reach.
	cmd := exec.CommandContext(cctx, m.binary, inputPath+"[0]", outputPath)
	cmd.WaitDelay = time.Second

	log.Debug().Str("cmd", strings.Join(cmd.Args, " ")).Msg("rasterizer command")

	output, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			log.Error().
				Str("input", inputPath).
				Dur("timeout", m.timeout).
				Msg("conversion timed out")
			return false
		}
		log.Error().
			Err(err).
			Str("input", inputPath).
			Str("output", strings.TrimSpace(string(output))).
			Msg("conversion failed")
		return false
	}

	log.Info().
		Str("input", inputPath).
		Str("result", outputPath).
		Dur("duration", time.Since(startTime)).
		Msg("conversion successful")
	return true
}
