package format

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

type jsonFormat struct{}

// JSON decodes numbers as json.Number so integer ids survive untouched.
var JSON Format = jsonFormat{}

func (jsonFormat) Name() string      { return "json" }
func (jsonFormat) Extension() string { return "json" }
func (jsonFormat) MimeType() string  { return "application/json" }

func (jsonFormat) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonFormat) Decode(data []byte) (any, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	return RemoveRoot(v), nil
}

func (jsonFormat) DecodePath(data []byte, path string) (any, error) {
	if path == "" {
		return decodeJSON(data)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid json body")
	}
	result := gjson.GetBytes(data, path)
	if !result.Exists() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return decodeJSON([]byte(result.Raw))
}

func decodeJSON(data []byte) (any, error) {
	if isBlank(data) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return v, nil
}
