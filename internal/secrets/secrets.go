// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory is one secret: the filename is the key name and
// the trimmed contents are the value.
//
// Known key files: tldv-api-key, mcp-endpoint-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/meeting-matcher/internal/logging"
)

// Key file names.
const (
	// TLDVAPIKey is forwarded to the MCP server as TLDV_API_KEY.
	TLDVAPIKey = "tldv-api-key"

	// EndpointToken authenticates against an HTTP MCP endpoint. When absent
	// the tl;dv key is sent instead.
	EndpointToken = "mcp-endpoint-token"
)

// DefaultDir is where the CLI looks for key files.
const DefaultDir = ".secrets"

// Secrets maps key file names to their values.
type Secrets map[string]string

// Get returns the named secret, or "" when it is not set.
func (s Secrets) Get(name string) string {
	return s[name]
}

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error and yields an empty set. Unreadable files are logged and
// skipped. A nil log discards the warnings.
func Load(dir string, log logging.Logger) (Secrets, error) {
	if log == nil {
		log = logging.Nop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", logging.F("name", name), logging.Err(err))
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}
