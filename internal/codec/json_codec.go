package codec

import (
	"encoding/json"
	"io"
)

const (
	jsonPrettyPrintPrefix = ""
	jsonPrettyPrintIndent = "  "
)

type jsonRW struct {
	options map[string]interface{}
}

// Write encodes v as JSON to w, honoring the PrettyPrint option.
func (j *jsonRW) Write(v interface{}, w io.Writer) error {
	pretty := false
	if j.options != nil {
		if p, ok := j.options[PrettyPrint]; ok {
			pretty, _ = p.(bool)
		}
	}
	encoder := json.NewEncoder(w)
	if pretty {
		encoder.SetIndent(jsonPrettyPrintPrefix, jsonPrettyPrintIndent)
	}
	return encoder.Encode(v)
}

// Read decodes JSON from r into v.
func (j *jsonRW) Read(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}
