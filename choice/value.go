package choice

import "encoding/json"

// absentType is the distinguished sentinel returned when a JSONPath query
// matches nothing, as opposed to matching an explicit JSON null.
type absentType struct{}

// Absent is returned by term evaluation when a JSONPath query has no match.
var Absent any = absentType{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absentType)
	return ok
}

func jsonUnmarshal(raw []byte, v any) error {
	return json.Unmarshal(raw, v)
}
