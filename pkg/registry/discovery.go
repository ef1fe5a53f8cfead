package registry

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DiscoverFiles expands a list of glob/path entries into a deterministic,
// stable-lexicographic-order list of capability file paths (§4.1
// "Discovery"). An entry ending in "**" is expanded recursively from its
// parent directory; other entries are passed through filepath.Glob.
func DiscoverFiles(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	for _, root := range roots {
		var matches []string
		var err error

		if strings.HasSuffix(root, "**") {
			base := strings.TrimSuffix(root, "**")
			base = strings.TrimSuffix(base, string(filepath.Separator))
			matches, err = walkRecursive(base)
		} else {
			matches, err = filepath.Glob(root)
		}
		if err != nil {
			return nil, err
		}

		for _, m := range matches {
			info, statErr := os.Stat(m)
			if statErr != nil || info.IsDir() {
				continue
			}
			if !isYAML(m) {
				continue
			}
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	sort.Strings(out)
	return out, nil
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func walkRecursive(base string) ([]string, error) {
	var out []string
	err := filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if isYAML(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
