package hostaway

import (
	_ "embed"
	"encoding/json"

	"github.com/rs/zerolog/log"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback returns the bundled review records used when the live API is not
// configured or fails. The bundle may hold an array or a single object.
func Fallback() []map[string]any {
	return decodeRecords(fallbackJSON)
}

func decodeRecords(b []byte) []map[string]any {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		log.Error().Err(err).Msg("bundled review dataset is not valid JSON")
		return []map[string]any{}
	}
	switch t := v.(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, it := range t {
			m, ok := it.(map[string]any)
			if !ok {
				m = map[string]any{}
			}
			out = append(out, m)
		}
		return out
	case map[string]any:
		return []map[string]any{t}
	}
	return []map[string]any{}
}
