// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets collects API keys from a directory of one-value files, a
// dotenv file, and the process environment.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
)

// Known lists the secret names the assistant looks for. Each may also be
// supplied as an environment variable, e.g. GROQ_API_KEY for groq-api-key.
var Known = []string{
	"groq-api-key",
	"openai-api-key",
	"anthropic-api-key",
	"semantic-scholar-api-key",
	"openalex-email",
}

// Set maps a secret name to its value.
type Set map[string]string

// Names returns the secret names present in s, sorted.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Gather reads dir, then loads dotenv into the environment, then fills any
// Known name still missing from the environment. Files win over the
// environment. Missing dir or dotenv file are not errors.
func Gather(dir, dotenv string) (Set, error) {
	s, err := Load(dir)
	if err != nil {
		return nil, err
	}
	if dotenv != "" {
		if err := LoadDotenv(dotenv); err != nil {
			return nil, err
		}
	}
	FromEnv(s, Known...)
	return s, nil
}

// Load returns one entry per regular, non-hidden file in dir: the file name
// is the key and the trimmed contents the value. Empty files are skipped.
// An unreadable file is reported on stderr and skipped.
func Load(dir string) (Set, error) {
	fsys := os.DirFS(dir)
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := Set{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping secret %s: %v\n", name, err)
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			s[name] = v
		}
	}
	return s, nil
}

// LoadDotenv loads KEY=value pairs from path into the process environment
// without overriding variables that are already set.
func LoadDotenv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}

// FromEnv copies keys from the environment into s where s has no value.
func FromEnv(s Set, keys ...string) {
	for _, k := range keys {
		if s[k] != "" {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(envName(k))); v != "" {
			s[k] = v
		}
	}
}

func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
