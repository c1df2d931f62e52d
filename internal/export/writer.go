package export

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"mediadigest/internal/fileutil"
)

// CheckManualEdit reports whether a previously exported note carries a
// manual rating. Readers record their own rating by filling in the empty
// "rating:" front-matter line; a note with a value there is never
// overwritten by a later export.
func CheckManualEdit(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("check manual edit: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inFrontMatter := false
	for scanner.Scan() {
		line := scanner.Text()
		if line == "---" {
			if !inFrontMatter {
				inFrontMatter = true
				continue
			}
			break
		}
		if !inFrontMatter {
			continue
		}
		if strings.HasPrefix(line, "rating_llm:") {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "rating:"); ok {
			return strings.TrimSpace(rest) != "", nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, fmt.Errorf("check manual edit: %w", err)
	}
	return false, nil
}

// WriteNote writes the rendered note unless the destination was manually
// rated. It reports whether the file was written.
func WriteNote(path, content string) (bool, error) {
	edited, err := CheckManualEdit(path)
	if err != nil {
		return false, err
	}
	if edited {
		return false, nil
	}
	if err := fileutil.WriteAtomic(path, []byte(content)); err != nil {
		return false, err
	}
	return true, nil
}
