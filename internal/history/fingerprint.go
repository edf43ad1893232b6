// Package history persists append-only trust score history keyed by a
// stable project fingerprint and detects score regressions against a
// rolling window.
package history

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// manifestNames are dependency manifests whose content anchors the
// fingerprint. Content hashing (not timestamps or machine identity) keeps
// repeated runs against an unchanged project stable across checkouts.
var manifestNames = []string{
	"go.mod", "go.sum",
	"package.json", "package-lock.json",
	"Cargo.toml", "Cargo.lock",
	"requirements.txt", "pyproject.toml",
	"pom.xml", "build.gradle",
}

// sourceExtensions mark files that contribute to the structural signature.
var sourceExtensions = map[string]bool{
	".go": true, ".ts": true, ".js": true, ".rs": true,
	".py": true, ".java": true, ".isl": true,
}

// ComputeFingerprint derives a stable identifier for "the same project"
// from dependency-manifest content and the project's structural layout.
// It never incorporates timestamps, absolute paths, or machine identity,
// so history comparisons survive directory moves and CI runners.
func ComputeFingerprint(projectRoot string) (string, error) {
	if projectRoot == "" {
		return "", eris.New("history: project root is required for fingerprinting")
	}
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", eris.Wrap(err, "history: resolve project root")
	}
	if _, err := os.Stat(root); err != nil {
		return "", eris.Wrapf(err, "history: stat project root %s", projectRoot)
	}

	h := sha256.New()

	for _, name := range manifestNames {
		data, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}
		fmt.Fprintf(h, "manifest:%s\n", name)
		h.Write(data)
	}

	// Structural signature: sorted relative paths of source files and
	// directories, names only.
	var structure []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		base := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(base, ".") || base == "node_modules" || base == "vendor" || base == "target" {
				return filepath.SkipDir
			}
			structure = append(structure, filepath.ToSlash(rel)+"/")
			return nil
		}
		if sourceExtensions[filepath.Ext(base)] {
			structure = append(structure, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(structure)
	for _, s := range structure {
		fmt.Fprintf(h, "path:%s\n", s)
	}

	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16]), nil
}
