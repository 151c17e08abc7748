package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
)

// Validatable is implemented by every structured model output.
type Validatable interface {
	Validate() error
}

// Decode parses raw language model text into T and validates it.
//
// Models frequently wrap JSON in Markdown code fences or surround it with
// prose, so fences are removed and the outermost JSON object is extracted
// before decoding. Fields tagged schema:"required" must be present and not
// null; empty strings are accepted. Any failure is returned as a
// *ValidationError.
func Decode[T any, PT interface {
	*T
	Validatable
}](raw string) (*T, error) {
	schema := reflect.TypeFor[T]().Name()

	payload, err := ExtractJSON(raw)
	if err != nil {
		return nil, &ValidationError{Schema: schema, Reason: err.Error()}
	}

	var out T
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return nil, decodeError(schema, err)
	}

	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, decodeError(schema, err)
	}
	if err := checkPresence(schema, reflect.TypeFor[T](), doc, ""); err != nil {
		return nil, err
	}

	if err := PT(&out).Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractJSON strips a surrounding Markdown code fence and returns the
// outermost JSON object contained in raw. Backticks inside the object are
// left alone.
func ExtractJSON(raw string) (string, error) {
	cleaned := stripFence(strings.TrimSpace(raw))
	if cleaned == "" {
		return "", errors.New("empty model output")
	}

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end < start {
		return "", errors.New("model output does not contain a JSON object")
	}
	return cleaned[start : end+1], nil
}

// stripFence removes an opening ``` line (with an optional language tag)
// and a closing ``` from the ends of s.
func stripFence(s string) string {
	const fence = "```"
	if rest, ok := strings.CutPrefix(s, fence); ok {
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.ContainsAny(rest[:nl], "{[") {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimLeftFunc(rest, unicode.IsLetter)
		}
		s = rest
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, fence)
	return strings.TrimSpace(s)
}

// checkPresence walks the generic decoding of a document alongside typ and
// reports the first required field that is absent or null. Type mismatches
// are left to json.Unmarshal.
func checkPresence(schema string, typ reflect.Type, v any, path string) error {
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}

	switch typ.Kind() {
	case reflect.Struct:
		obj, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		for i := range typ.NumField() {
			f := typ.Field(i)
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if !f.IsExported() || name == "-" {
				continue
			}
			if name == "" {
				name = f.Name
			}
			fieldPath := joinPath(path, name)

			val, present := obj[name]
			if f.Tag.Get("schema") == "required" {
				if !present {
					return &ValidationError{Schema: schema, Field: fieldPath, Reason: "field required"}
				}
				if val == nil {
					return &ValidationError{Schema: schema, Field: fieldPath, Reason: "must not be null"}
				}
			}
			if err := checkPresence(schema, f.Type, val, fieldPath); err != nil {
				return err
			}
		}
	case reflect.Slice:
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		elem := typ.Elem()
		for elem.Kind() == reflect.Pointer {
			elem = elem.Elem()
		}
		for i, item := range items {
			itemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil && elem.Kind() == reflect.Struct {
				return &ValidationError{Schema: schema, Field: itemPath, Reason: "must not be null"}
			}
			if err := checkPresence(schema, elem, item, itemPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func decodeError(schema string, err error) *ValidationError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return &ValidationError{
			Schema: schema,
			Field:  typeErr.Field,
			Reason: fmt.Sprintf("expected %s, got JSON %s", typeErr.Type, typeErr.Value),
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &ValidationError{
			Schema: schema,
			Reason: fmt.Sprintf("invalid JSON at offset %d: %v", syntaxErr.Offset, err),
		}
	}

	return &ValidationError{Schema: schema, Reason: err.Error()}
}
