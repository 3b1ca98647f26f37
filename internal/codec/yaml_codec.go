package codec

import (
	"io"

	"gopkg.in/yaml.v3"
)

type yamlRW struct{}

// Write encodes v as YAML to w.
func (y *yamlRW) Write(v interface{}, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	defer encoder.Close()
	return encoder.Encode(v)
}

// Read decodes YAML from r into v.
func (y *yamlRW) Read(r io.Reader, v interface{}) error {
	return yaml.NewDecoder(r).Decode(v)
}
