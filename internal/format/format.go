// Package format encodes request bodies and decodes response bodies for the
// wire formats a remote resource can speak.
package format

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownFormat is returned by ByName for unsupported format names
	ErrUnknownFormat = errors.New("unknown format")

	// ErrPathNotFound is returned when a collection path is absent from a body
	ErrPathNotFound = errors.New("path not found in response body")
)

// Format is a wire codec. Decode removes a single enclosing root element;
// DecodePath extracts the value found at path before decoding it.
type Format interface {
	Name() string
	Extension() string
	MimeType() string
	Encode(v any) ([]byte, error)
	Decode(data []byte) (any, error)
	DecodePath(data []byte, path string) (any, error)
}

// ByName returns the format registered under name ("json" or "xml")
func ByName(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "xml":
		return XML, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// RemoveRoot unwraps a map holding exactly one key whose value is itself a map
// or a slice. Anything else is returned unchanged.
func RemoveRoot(data any) any {
	m, ok := data.(map[string]any)
	if !ok || len(m) != 1 {
		return data
	}
	for _, v := range m {
		switch v.(type) {
		case map[string]any, []any:
			return v
		}
	}
	return data
}

func isBlank(data []byte) bool {
	return len(strings.TrimSpace(string(data))) == 0
}
