package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// tempPrefixes names the temp files and dirs created by source and Run.
var tempPrefixes = []string{"pdfsplit-dl-", "pdfsplit-s3-", "pdfsplit-out-"}

// CleanupTemps removes temp files and dirs left behind by interrupted runs
// that are older than maxAge. It returns the number of entries removed.
func CleanupTemps(dir string, maxAge time.Duration) int {
	if dir == "" {
		dir = os.TempDir()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if !hasTempPrefix(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		log.Debug().Int("removed", removed).Str("dir", dir).Msg("cleaned stale temp files")
	}
	return removed
}

func hasTempPrefix(name string) bool {
	for _, p := range tempPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
