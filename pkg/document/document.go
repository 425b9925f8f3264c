package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Read extracts the plain text of a document, dispatching on the file
// extension. Supported: .txt, .md, .pdf, .epub.
func Read(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return readText(path)

	case ".pdf":
		return readPDF(path)

	case ".epub":
		return readEPUB(path)

	default:
		return "", fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}

func readText(path string) (string, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return "", err
	}

	return string(data), nil
}

// Stem returns the file name without directory or extension.
func Stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

var sanitizer = strings.NewReplacer(
	`\`, "_",
	"/", "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// Sanitize replaces characters that are invalid in file names.
func Sanitize(name string) string {
	return sanitizer.Replace(name)
}
