package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// UnknownKeyError lists keys of a project file that no setting or definition
// reads, usually typos.
type UnknownKeyError struct {
	Keys []string // dotted paths such as "sources[2].fields[0].requird"
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown keys: %s", strings.Join(e.Keys, ", "))
}

// CheckKeys reports keys of a project file that are not understood.
// settings are the additional top-level keys read by the caller.
func CheckKeys(data []byte, settings ...string) error {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid yaml: %w", err)
	}

	known := keysOf(Definitions{})
	for _, s := range settings {
		known[s] = true
	}

	var unknown []string
	for key, v := range raw {
		if !known[key] {
			unknown = append(unknown, key)
			continue
		}
		switch key {
		case "sources":
			unknown = append(unknown, checkList(key, v, keysOf(SourceConfig{}), map[string]map[string]bool{
				"input":  keysOf(InputConfig{}),
				"fields": keysOf(FieldConfig{}),
			})...)
		case "derived":
			unknown = append(unknown, checkList(key, v, keysOf(DerivedConfig{}), map[string]map[string]bool{
				"fields": keysOf(FieldConfig{}),
			})...)
		case "cleaners":
			unknown = append(unknown, checkList(key, v, keysOf(CleanerConfig{}), nil)...)
		case "policies":
			unknown = append(unknown, checkList(key, v, keysOf(PolicyConfig{}), nil)...)
		}
	}

	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return &UnknownKeyError{Keys: unknown}
}

// checkList checks the keys of every mapping in a list. nested holds the
// known keys of mapping (or list of mapping) values.
func checkList(path string, v any, known map[string]bool, nested map[string]map[string]bool) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var unknown []string
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		prefix := fmt.Sprintf("%s[%d]", path, i)
		for key, val := range m {
			if !known[key] {
				unknown = append(unknown, prefix+"."+key)
				continue
			}
			sub, ok := nested[key]
			if !ok {
				continue
			}
			switch val := val.(type) {
			case []any:
				unknown = append(unknown, checkList(prefix+"."+key, val, sub, nil)...)
			case map[string]any:
				for k := range val {
					if !sub[k] {
						unknown = append(unknown, prefix+"."+key+"."+k)
					}
				}
			}
		}
	}
	return unknown
}

// keysOf returns the koanf keys of a struct's fields.
func keysOf(v any) map[string]bool {
	t := reflect.TypeOf(v)
	keys := make(map[string]bool, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" && tag != "-" {
			keys[tag] = true
		}
	}
	return keys
}
