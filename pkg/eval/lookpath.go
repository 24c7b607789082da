package eval

import (
	"os"
	"path/filepath"
	"strings"
)

// Like os/exec.LookPath, but
//
//   - Uses the working directory and PATH value given in the arguments, so
//     that cd and PATH assignments in the script take effect.
//   - Returns either [StatusCommandNotFound] or [StatusCommandNotExecutable]
//     in the second return value when the search fails.
func lookPath(file, wd, paths string) (string, int) {
	if strings.Contains(file, "/") {
		if !filepath.IsAbs(file) {
			file = filepath.Join(wd, file)
		}
		return file, checkExecutable(file)
	}
	retStatus := StatusCommandNotFound
	for _, dir := range filepath.SplitList(paths) {
		if !filepath.IsAbs(dir) {
			// Skip non-absolute components for safety.
			continue
		}
		fullpath := filepath.Join(dir, file)
		status := checkExecutable(fullpath)
		if status == 0 {
			return fullpath, 0
		} else if status == StatusCommandNotExecutable {
			retStatus = StatusCommandNotExecutable
		}
	}
	return "", retStatus
}

func checkExecutable(file string) int {
	info, err := os.Stat(file)
	if err == nil && !info.IsDir() {
		if info.Mode()&0o111 != 0 {
			return 0
		}
		return StatusCommandNotExecutable
	}
	return StatusCommandNotFound
}
