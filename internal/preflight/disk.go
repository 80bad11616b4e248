package preflight

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/Aman-CERP/choralmind/internal/hymn"
)

// MinDiskSpaceBytes is the headroom kept free beyond any rebuild.
const MinDiskSpaceBytes = 100 * 1024 * 1024

// CheckDiskSpace checks that dataDir can hold a rebuild. A rebuild writes
// a complete generation beside the published one, so the need is the
// largest language directory plus MinDiskSpaceBytes.
func (c *Checker) CheckDiskSpace(dataDir string) CheckResult {
	result := CheckResult{Name: "disk_space", Required: true}

	free, err := freeSpace(existingAncestor(dataDir))
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot read free space under %s: %v", dataDir, err)
		return result
	}
	footprint := largestIndex(dataDir, c.langs)
	return rebuildVerdict(result, free, footprint)
}

func rebuildVerdict(result CheckResult, free, footprint uint64) CheckResult {
	need := footprint + MinDiskSpaceBytes
	result.Message = fmt.Sprintf("%s free, a rebuild needs %s", humanize.IBytes(free), humanize.IBytes(need))
	if footprint > 0 {
		result.Details = fmt.Sprintf("largest index %s", humanize.IBytes(footprint))
	}
	if free < need {
		result.Status = StatusFail
		return result
	}
	result.Status = StatusPass
	return result
}

// largestIndex returns the size of the biggest language directory.
// Unreadable entries are skipped.
func largestIndex(dataDir string, langs []hymn.Language) uint64 {
	var largest uint64
	for _, lang := range langs {
		var size uint64
		_ = filepath.WalkDir(filepath.Join(dataDir, lang.String()), func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if info, err := d.Info(); err == nil {
				size += uint64(info.Size())
			}
			return nil
		})
		largest = max(largest, size)
	}
	return largest
}

// existingAncestor walks up from path until a directory exists, so the
// check works before the data directory is created.
func existingAncestor(path string) string {
	for {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(path)
		if parent == path {
			return path
		}
		path = parent
	}
}

func freeSpace(path string) (uint64, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, err
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
