// Package fileio holds the JSON and log file helpers shared by the keystore
// and the sandbox supervisor.
package fileio

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Reasons reported by JSONLoadError.
const (
	ReasonNotFound = "file not found"
	ReasonRead     = "failed to read"
	ReasonParse    = "failed to parse JSON in"
)

// JSONLoadError represents an error that occurred while loading JSON.
type JSONLoadError struct {
	Path    string
	Reason  string
	Wrapped error
}

func (e *JSONLoadError) Error() string {
	if e.Wrapped != nil && e.Reason != ReasonNotFound {
		return fmt.Sprintf("%s: %s: %v", e.Reason, e.Path, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Path)
}

func (e *JSONLoadError) Unwrap() error {
	return e.Wrapped
}

// IsParseError reports whether err is a JSONLoadError for malformed content.
func IsParseError(err error) bool {
	var le *JSONLoadError
	return errors.As(err, &le) && le.Reason == ReasonParse
}

// LoadJSON reads and unmarshals a JSON file into the provided type.
// A missing file yields an error matching fs.ErrNotExist.
func LoadJSON[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &JSONLoadError{Path: path, Reason: ReasonNotFound, Wrapped: err}
		}
		return nil, &JSONLoadError{Path: path, Reason: ReasonRead, Wrapped: err}
	}

	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &JSONLoadError{Path: path, Reason: ReasonParse, Wrapped: err}
	}
	return &result, nil
}

// SaveJSON writes data as indented JSON with perm, creating parent
// directories with dirPerm. The file is written to a temporary name and
// renamed so readers never see a partial file.
func SaveJSON(path string, data any, perm, dirPerm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, jsonData, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadLastLines reads the last n lines of a file.
func ReadLastLines(path string, n int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > n {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
