// Package codec provides content-type-selected encoders/decoders for JSON
// and YAML. barn itself uses only the JSON codec, for persisted manifests;
// nothing in the repository encodes or decodes YAML through it.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	// MimeApplicationJSON selects the JSON codec.
	MimeApplicationJSON = "application/json"
	// MimeTextYAML selects the YAML codec.
	MimeTextYAML = "text/yaml"

	// PrettyPrint, when set true via SetOption, indents JSON output.
	PrettyPrint = "PrettyPrint"
)

// ReaderWriter reads and writes a value against a specific wire format.
type ReaderWriter interface {
	Write(v interface{}, w io.Writer) error
	Read(r io.Reader, v interface{}) error
}

// Codec encodes/decodes a value to/from bytes, strings, or streams.
type Codec interface {
	EncodeToBytes(v interface{}) ([]byte, error)
	EncodeToString(v interface{}) (string, error)
	DecodeBytes(b []byte, v interface{}) error
	DecodeString(s string, v interface{}) error
	Write(v interface{}, w io.Writer) error
	Read(r io.Reader, v interface{}) error
	SetOption(key string, value interface{})
}

// BaseCodec wraps a ReaderWriter with the shared Codec plumbing.
type BaseCodec struct {
	readerWriter ReaderWriter
	options      map[string]interface{}
}

// SetOption sets a codec option, e.g. PrettyPrint.
func (bc *BaseCodec) SetOption(key string, value interface{}) {
	if bc.options == nil {
		bc.options = make(map[string]interface{})
	}
	bc.options[key] = value
}

// GetDefault returns the Codec registered for contentType.
func GetDefault(contentType string) (Codec, error) {
	typ := contentType
	if idx := strings.IndexByte(contentType, ';'); idx >= 0 {
		typ = strings.TrimSpace(contentType[:idx])
	}

	bc := &BaseCodec{options: make(map[string]interface{})}
	switch typ {
	case MimeApplicationJSON:
		bc.readerWriter = &jsonRW{options: bc.options}
	case MimeTextYAML:
		bc.readerWriter = &yamlRW{}
	default:
		return nil, fmt.Errorf("unsupported contentType %s", contentType)
	}
	return bc, nil
}

// JSON returns the default JSON Codec.
func JSON() Codec {
	c, _ := GetDefault(MimeApplicationJSON)
	return c
}

// YAML returns the default YAML Codec.
func YAML() Codec {
	c, _ := GetDefault(MimeTextYAML)
	return c
}

// DecodeString decodes s into v.
func (bc *BaseCodec) DecodeString(s string, v interface{}) error {
	return bc.Read(strings.NewReader(s), v)
}

// DecodeBytes decodes b into v.
func (bc *BaseCodec) DecodeBytes(b []byte, v interface{}) error {
	return bc.Read(bytes.NewReader(b), v)
}

// EncodeToBytes encodes v.
func (bc *BaseCodec) EncodeToBytes(v interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := bc.Write(v, buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeToString encodes v.
func (bc *BaseCodec) EncodeToString(v interface{}) (string, error) {
	buf := &bytes.Buffer{}
	if err := bc.Write(v, buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Read decodes from r into v.
func (bc *BaseCodec) Read(r io.Reader, v interface{}) error {
	return bc.readerWriter.Read(r, v)
}

// Write encodes v to w.
func (bc *BaseCodec) Write(v interface{}, w io.Writer) error {
	return bc.readerWriter.Write(v, w)
}
