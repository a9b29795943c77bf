package utils

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/cristianradulescu/beautify-ls/internal/config"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// URIToPath converts a file:// URI into a filesystem path. Anything else is
// returned unchanged.
func URIToPath(documentURI protocol.DocumentURI) string {
	raw := string(documentURI)
	if !strings.HasPrefix(raw, "file://") {
		return raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return strings.TrimPrefix(raw, "file://")
	}
	if parsed.Host != "" && parsed.Host != "localhost" {
		return parsed.Host + parsed.Path
	}

	return filepath.FromSlash(parsed.Path)
}

func PathToURI(path string) protocol.DocumentURI {
	return protocol.DocumentURI(uri.File(path))
}

// Find the workspace root of a file by looking for the local formatter config
func FindProjectRoot(filePath string) string {
	dir := filepath.Dir(filePath)

	for {
		if _, err := os.Stat(config.LocalConfigPath(dir)); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}

	// If no config found, use the directory of the file
	return filepath.Dir(filePath)
}

func EnsureTextEditsArray(edits []protocol.TextEdit) []protocol.TextEdit {
	if edits == nil {
		return make([]protocol.TextEdit, 0)
	}
	return edits
}
