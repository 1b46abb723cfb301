package config

import "strings"

// Map is a Getter over a plain map. Keys may be dotted ("auth.username") or
// nested maps ({"auth": {"username": ...}}).
type Map map[string]any

// Get implements Getter.
func (m Map) Get(key string) any {
	if v, ok := m[key]; ok {
		return v
	}
	head, rest, found := strings.Cut(key, ".")
	if !found {
		return nil
	}
	switch sub := m[head].(type) {
	case Map:
		return sub.Get(rest)
	case map[string]any:
		return Map(sub).Get(rest)
	}
	return nil
}
