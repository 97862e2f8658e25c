//go:build unit || e2e

package testutil

// Field sets key on a request map; a nil value removes the key.
func Field(key string, value any) func(m map[string]any) {
	return func(m map[string]any) {
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
	}
}

// Fields applies several Field mutations at once.
func Fields(kv map[string]any) func(m map[string]any) {
	return func(m map[string]any) {
		for k, v := range kv {
			Field(k, v)(m)
		}
	}
}
