package oasrt

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

// Decoder decodes a request body of one media type into v.
type Decoder interface {
	Decode(data []byte, v any) error
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(data []byte, v any) error

func (f DecoderFunc) Decode(data []byte, v any) error { return f(data, v) }

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	decodersMu sync.RWMutex
	decoders   = map[string]Decoder{
		"application/json":                  DecoderFunc(json.Unmarshal),
		"application/yaml":                  DecoderFunc(yaml.Unmarshal),
		"application/x-yaml":                DecoderFunc(yaml.Unmarshal),
		"text/yaml":                         DecoderFunc(yaml.Unmarshal),
		"application/x-www-form-urlencoded": DecoderFunc(decodeForm),
		"text/plain":                        DecoderFunc(decodeRaw),
		"application/octet-stream":          DecoderFunc(decodeRaw),
	}
)

// RegisterDecoder adds or replaces the decoder for mediaType.
func RegisterDecoder(mediaType string, d Decoder) {
	decodersMu.Lock()
	defer decodersMu.Unlock()
	decoders[strings.ToLower(mediaType)] = d
}

func decoderFor(mediaType string) (Decoder, bool) {
	decodersMu.RLock()
	defer decodersMu.RUnlock()
	if d, ok := decoders[mediaType]; ok {
		return d, true
	}
	if strings.HasSuffix(mediaType, "+json") {
		return decoders["application/json"], true
	}
	return nil, false
}

// ReadBody reads the whole request body.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindBody, err)
	}
	return data, nil
}

// DecodeBody tries each candidate media type in order and returns the first
// successful decode. A candidate is skipped when contentType names a
// different media type; an empty contentType matches every candidate.
func DecodeBody[T any](contentType string, data []byte, mediaTypes ...string) (T, error) {
	var zero T
	requested := baseMediaType(contentType)
	var errs []error
	for _, mt := range mediaTypes {
		base := baseMediaType(mt)
		if requested != "" && requested != base {
			errs = append(errs, fmt.Errorf("%s: content type is %s", mt, requested))
			continue
		}
		dec, ok := decoderFor(base)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", mt, ErrUnsupportedMediaType))
			continue
		}
		var v T
		if err := dec.Decode(data, &v); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", mt, err))
			continue
		}
		return v, nil
	}
	return zero, fmt.Errorf("%w: %w: %w", ErrBindBody, ErrAllBodyParsersFailed, errors.Join(errs...))
}

// FirstOf runs attempts in order and stops at the first that succeeds. It is
// used for bodies whose candidates decode to different types.
func FirstOf(attempts ...func() error) error {
	var errs []error
	for _, a := range attempts {
		err := a()
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	return fmt.Errorf("%w: %w: %w", ErrBindBody, ErrAllBodyParsersFailed, errors.Join(errs...))
}

// MissingBody is returned when a required body is empty.
func MissingBody() error {
	return fmt.Errorf("%w: %w", ErrBindBody, ErrMissingParameter)
}

func baseMediaType(ct string) string {
	if strings.TrimSpace(ct) == "" {
		return ""
	}
	base, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return base
}

func decodeForm(data []byte, v any) error {
	values, err := url.ParseQuery(string(data))
	if err != nil {
		return err
	}
	return decodeValues(values, v)
}

// decodeRaw stores the body as text, bytes or a scalar parsed from text.
func decodeRaw(data []byte, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", v)
	}
	if rv.Elem().Kind() == reflect.Struct && rv.Elem().Type() != timeType {
		return fmt.Errorf("cannot decode raw body into %s", rv.Elem().Type())
	}
	return setValue(rv.Elem(), []string{string(data)})
}
