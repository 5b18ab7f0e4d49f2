package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// fields a patch may not touch
var protected = map[string]bool{"id": true, "createdAt": true, "updatedAt": true}

// jsonNames returns the exact top-level JSON keys of struct type T.
func jsonNames[T any]() map[string]bool {
	names := map[string]bool{}
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return names
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		names[name] = true
	}
	return names
}

// ApplyPatch merges a JSON object into dst. Keys must match a JSON field
// name of T exactly, case included, and values must have the field's type;
// id and timestamp keys are dropped. It returns the keys that were applied,
// sorted, which are also the stored field names.
func ApplyPatch[T any](dst *T, patch []byte) ([]string, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(patch, &raw); err != nil {
		return nil, InvalidPatch(err)
	}
	if raw == nil {
		return nil, InvalidPatch(errors.New("body must be a JSON object"))
	}
	known := jsonNames[T]()
	fields := make([]string, 0, len(raw))
	for k := range raw {
		if protected[k] {
			delete(raw, k)
			continue
		}
		// encoding/json would fold "Title" onto "title"
		if !known[k] {
			return nil, InvalidPatch(fmt.Errorf("unknown field %q", k))
		}
		fields = append(fields, k)
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return nil, nil
	}

	clean, err := json.Marshal(raw)
	if err != nil {
		return nil, InvalidPatch(err)
	}
	// check against a zero value first so a bad patch leaves dst untouched
	var trial T
	dec := json.NewDecoder(bytes.NewReader(clean))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&trial); err != nil {
		return nil, InvalidPatch(err)
	}
	if err := json.Unmarshal(clean, dst); err != nil {
		return nil, InvalidPatch(err)
	}
	return fields, nil
}
