// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads the platform credentials. The primary source is the
// config.ini file with an [e-queo] section; a directory of plain-text files
// (file name is the key, trimmed contents the value) can supply or override
// single values.
//
// Supported key files: auth-token, module-id.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

const (
	// Section is the config.ini section holding the credentials.
	Section = "e-queo"

	keyAuthToken = "auth_token"
	keyModuleID  = "module_id"

	// File names recognised by Load.
	FileAuthToken = "auth-token"
	FileModuleID  = "module-id"
)

// Credentials are the values needed to talk to the platform.
type Credentials struct {
	AuthToken string
	ModuleID  string
}

// Merge fills empty fields of c from other.
func (c Credentials) Merge(other Credentials) Credentials {
	if c.AuthToken == "" {
		c.AuthToken = other.AuthToken
	}
	if c.ModuleID == "" {
		c.ModuleID = other.ModuleID
	}
	return c
}

// FromMap picks the credential files out of a Load result.
func FromMap(m map[string]string) Credentials {
	return Credentials{AuthToken: m[FileAuthToken], ModuleID: m[FileModuleID]}
}

// LoadINI reads the [e-queo] section of the config.ini file at path.
// A missing file is reported with os.ErrNotExist so callers can fall back
// to other sources; a file without the section is an error.
func LoadINI(path string) (Credentials, error) {
	if _, err := os.Stat(path); err != nil {
		return Credentials{}, fmt.Errorf("reading %s: %w", path, err)
	}
	f, err := ini.Load(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if !f.HasSection(Section) {
		return Credentials{}, fmt.Errorf("section %s not found in the %s file", Section, filepath.Base(path))
	}
	sec := f.Section(Section)
	return Credentials{
		AuthToken: strings.TrimSpace(sec.Key(keyAuthToken).String()),
		ModuleID:  strings.TrimSpace(sec.Key(keyModuleID).String()),
	}, nil
}

// IsNotExist reports whether err came from a missing config.ini.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
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

	return secrets, nil
}
