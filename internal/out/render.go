// Package out renders command results as json, yaml or plain key=value lines.
package out

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	clierr "swapDesk/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	ModePlain = "plain"
	ModeJSON  = "json"
	ModeYAML  = "yaml"
)

// CheckMode validates an output mode name.
func CheckMode(mode string) error {
	switch mode {
	case ModePlain, ModeJSON, ModeYAML:
		return nil
	default:
		return clierr.New(clierr.CodeUsage, fmt.Sprintf("unknown output %q (plain, json, yaml)", mode))
	}
}

// Render writes data in mode. Field names follow the json tags in every mode.
func Render(w io.Writer, data any, mode string) error {
	switch mode {
	case ModeJSON:
		buf, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(buf))
		return err
	case ModeYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(normalizeValue(data)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return renderPlain(w, data)
	}
}

func renderPlain(w io.Writer, data any) error {
	v := reflect.ValueOf(data)
	if !v.IsValid() {
		_, err := fmt.Fprintln(w, "null")
		return err
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			line, err := toLine(normalizeValue(v.Index(i).Interface()))
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if v.Len() == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		return nil
	default:
		line, err := toLine(normalizeValue(data))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, line)
		return err
	}
}

func normalizeValue(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

func toLine(v any) (string, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			value, err := plainValue(t[k])
			if err != nil {
				return "", err
			}
			parts = append(parts, fmt.Sprintf("%s=%s", k, value))
		}
		return strings.Join(parts, " "), nil
	default:
		return plainValue(v)
	}
}

// plainValue prints scalars bare and nested values as compact json.
func plainValue(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "null", nil
	case string:
		return t, nil
	case map[string]any, []any:
		buf, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(buf), nil
	default:
		return fmt.Sprint(t), nil
	}
}
