package validate

import (
	"fmt"
	"strings"

	"github.com/local/psdconvert/internal/config"
)

const mib = 1024 * 1024

// allowedExtensions is the set of layered-image extensions the service
// accepts for conversion.
var allowedExtensions = map[string]struct{}{
	"psd": {},
}

// File carries the only attributes validation needs: the client-supplied
// name and the measured byte size.
type File struct {
	Name string
	Size int64
}

// Allowed reports whether the filename carries an accepted extension
// (case-insensitive). Files without any extension are rejected.
func Allowed(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	_, ok := allowedExtensions[strings.ToLower(name[i+1:])]
	return ok
}

// Rules validates a submitted batch against the configured limits.
type Rules struct {
	limits config.LimitsConfig
}

// New returns a validator bound to the given limits.
func New(limits config.LimitsConfig) *Rules {
	return &Rules{limits: limits}
}

// Check evaluates the batch and returns every violation as a
// human-readable message. An empty slice means the batch may proceed.
// The file-count rule short-circuits: an oversized list is unusable,
// so per-file rules are not evaluated for it.
func (r *Rules) Check(files []File) []string {
	var errs []string

	if len(files) > r.limits.MaxFilesCount {
		errs = append(errs, fmt.Sprintf("too many files submitted, maximum is %d", r.limits.MaxFilesCount))
		return errs
	}

	var totalSize int64
	for _, f := range files {
		if Allowed(f.Name) {
			if f.Size > r.limits.MaxSingleFileSize {
				errs = append(errs, fmt.Sprintf("file %s is too large (%dMB), maximum is %dMB",
					f.Name, f.Size/mib, r.limits.MaxSingleFileSize/mib))
			}
			totalSize += f.Size
		} else {
			errs = append(errs, fmt.Sprintf("file %s is not in PSD format", f.Name))
		}
	}

	if totalSize > r.limits.MaxTotalRequestSize {
		errs = append(errs, fmt.Sprintf("total size of files (%dMB) exceeds the limit of %dMB",
			totalSize/mib, r.limits.MaxTotalRequestSize/mib))
	}

	return errs
}
