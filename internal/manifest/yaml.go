package manifest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/born-ml/hetero/internal/backend"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a YAML manifest. Unknown keys are rejected.
func ParseYAML(data []byte) (*Manifest, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parse yaml: %w", err)
	}
	m, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("manifest: decode yaml: %w", err)
	}
	return m, nil
}

// decode maps generic configuration data onto a Manifest.
func decode(raw map[string]any) (*Manifest, error) {
	var m Manifest
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			deviceHook,
			memorySourceHook,
		),
		ErrorUnused: true,
		Result:      &m,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, err
	}
	return &m, nil
}

var (
	deviceType       = reflect.TypeOf(backend.Device(0))
	memorySourceType = reflect.TypeOf(backend.MemorySource(0))
)

// deviceHook decodes device names such as "WebGPU".
func deviceHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != deviceType {
		return data, nil
	}
	name, ok := data.(string)
	if !ok {
		return data, nil
	}
	return backend.ParseDevice(name)
}

// memorySourceHook decodes "malloc|dmabuf", "none" or a list of names.
func memorySourceHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != memorySourceType {
		return data, nil
	}
	var names []string
	switch v := data.(type) {
	case string:
		if v == "" || strings.EqualFold(v, "none") {
			return backend.Undefined, nil
		}
		names = strings.Split(v, "|")
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("memory source %v is not a string", item)
			}
			names = append(names, s)
		}
	case []string:
		names = v
	default:
		return data, nil
	}
	return backend.ParseMemorySources(names...)
}
