package config

import "strings"

// EndpointList accepts either a YAML sequence or a single comma-separated string.
type EndpointList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *EndpointList) UnmarshalYAML(unmarshal func(any) error) error {
	var list []string
	if err := unmarshal(&list); err == nil {
		*l = cleanEndpoints(list)
		return nil
	}

	var joined string
	if err := unmarshal(&joined); err != nil {
		return err
	}
	*l = cleanEndpoints(strings.Split(joined, ","))
	return nil
}

func cleanEndpoints(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}
