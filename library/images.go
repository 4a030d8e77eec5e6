package library

import (
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/exp/slices"
)

var (
	imageExtensions  = []string{".png", ".jpg", ".jpeg", ".bmp"}
	sampleExtensions = []string{".wav", ".ogg", ".mp3", ".flac"}

	bannerNames    = []string{"banner", "bn"}
	stageFileNames = []string{"stagefile", "stage", "bg"}
)

// findImageFile returns the name of the first image in folder whose base
// name contains one of patterns, in pattern order. When nothing matches, the
// file named by a chart header is used if it exists.
func findImageFile(folder, declared string, patterns ...string) string {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return ""
	}

	for _, pattern := range patterns {
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			name := strings.ToLower(e.Name())
			ext := filepath.Ext(name)
			if !slices.Contains(imageExtensions, ext) {
				continue
			}
			if strings.Contains(strings.TrimSuffix(name, ext), pattern) {
				return e.Name()
			}
		}
	}

	if declared != "" && fileExists(filepath.Join(folder, declared)) {
		return declared
	}
	return ""
}

// ResolveSample finds the keysound file a chart refers to. Charts often name
// a .wav that was later re-encoded, so the other audio extensions are tried
// with the same base name. It returns the path and whether it exists.
func ResolveSample(folder, file string) (string, bool) {
	if file == "" {
		return "", false
	}
	path := filepath.Join(folder, filepath.FromSlash(strings.ReplaceAll(file, `\`, "/")))
	if fileExists(path) {
		return path, true
	}

	base := strings.TrimSuffix(path, filepath.Ext(path))
	for _, ext := range sampleExtensions {
		if fileExists(base + ext) {
			return base + ext, true
		}
	}
	return path, false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
