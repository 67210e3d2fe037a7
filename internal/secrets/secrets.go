// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files,
// with an environment-variable overlay. Each file in the directory is one
// secret: the filename is the key name and the trimmed contents are the
// value. Environment variables win over files so deployments can inject
// credentials without touching disk.
//
// Supported key files: tavily-api-key, google-api-key.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// envOverlay maps secret key names to the environment variables that
// override them.
var envOverlay = map[string]string{
	"tavily-api-key": "TAVILY_API_KEY",
	"google-api-key": "GOOGLE_API_KEY",
}

// Load reads all files in dir and returns a map of filename to trimmed
// contents, overlaid with any set environment variables from envOverlay.
// A missing directory or missing files are not errors; Load returns
// whatever the environment provides. Unreadable files produce a warning
// on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	secrets := make(map[string]string)

	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	for key, env := range envOverlay {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			secrets[key] = v
		}
	}

	return secrets, nil
}
