package oasrt

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Path binds the path wildcard name into dst. A missing segment fails the
// binding.
func Path[T any](r *http.Request, name string, dst *T) error {
	raw := r.PathValue(name)
	if raw == "" {
		return fmt.Errorf("%w: %s: %w", ErrBindPath, name, ErrMissingParameter)
	}
	if err := assign(dst, []string{raw}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindPath, name, err)
	}
	return nil
}

// Query binds the query values named name into dst. Absent optional values
// leave dst untouched.
func Query[T any](r *http.Request, name string, required bool, dst *T) error {
	raw := r.URL.Query()[name]
	if len(raw) == 0 {
		if required {
			return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, ErrMissingParameter)
		}
		return nil
	}
	if err := assign(dst, raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindQuery, name, err)
	}
	return nil
}

// QueryStruct decodes the whole query string into dst, matching keys to
// `json` field tags.
func QueryStruct[T any](r *http.Request, dst *T) error {
	if err := decodeValues(r.URL.Query(), dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBindQuery, err)
	}
	return nil
}

// Header binds the request header name into dst.
func Header[T any](r *http.Request, name string, required bool, dst *T) error {
	raw := r.Header.Values(name)
	if len(raw) == 0 {
		if required {
			return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, ErrMissingParameter)
		}
		return nil
	}
	if err := assign(dst, raw); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindHeader, name, err)
	}
	return nil
}

// Cookie binds the cookie name into dst.
func Cookie[T any](r *http.Request, name string, required bool, dst *T) error {
	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		if required {
			return fmt.Errorf("%w: %s: %w", ErrBindCookie, name, ErrMissingParameter)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindCookie, name, err)
	}
	if err := assign(dst, []string{c.Value}); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBindCookie, name, err)
	}
	return nil
}

// ParseTime accepts RFC 3339 timestamps, dates and times of day.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly, time.TimeOnly, "15:04:05Z07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

var (
	timeType  = reflect.TypeFor[time.Time]()
	bytesType = reflect.TypeFor[[]byte]()
)

func assign(dst any, raw []string) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dst)
	}
	return setValue(v.Elem(), raw)
}

// setValue converts raw into v. Pointers are allocated, slices take one
// element per raw value and scalars take the first.
func setValue(v reflect.Value, raw []string) error {
	if len(raw) == 0 {
		return nil
	}
	switch {
	case v.Kind() == reflect.Pointer:
		p := reflect.New(v.Type().Elem())
		if err := setValue(p.Elem(), raw); err != nil {
			return err
		}
		v.Set(p)
		return nil
	case v.Type() == timeType:
		t, err := ParseTime(raw[0])
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(t))
		return nil
	case v.Type() == bytesType:
		v.SetBytes([]byte(raw[0]))
		return nil
	case v.Kind() == reflect.Slice:
		s := reflect.MakeSlice(v.Type(), len(raw), len(raw))
		for i := range raw {
			if err := setValue(s.Index(i), raw[i:i+1]); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil
	}

	//exhaustive:ignore
	switch v.Kind() {
	case reflect.String:
		v.SetString(raw[0])
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw[0], 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(raw[0], 64)
		if err != nil {
			return err
		}
		v.SetFloat(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw[0])
		if err != nil {
			return err
		}
		v.SetBool(b)
	default:
		return fmt.Errorf("unsupported type: %s", v.Type())
	}
	return nil
}

// decodeValues decodes url.Values into a struct. Keys with one value decode
// as scalars, repeated keys as slices.
func decodeValues(values url.Values, dst any) error {
	in := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) == 1 {
			in[k] = vs[0]
			continue
		}
		in[k] = vs
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			stringToTimeHook,
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}

func stringToTimeHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	return ParseTime(data.(string))
}
