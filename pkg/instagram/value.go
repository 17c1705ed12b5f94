package instagram

import (
	"bytes"

	"github.com/goccy/go-json"
)

// insightNumberOrMap decodes the polymorphic "value" field of insight
// responses: a number for day-period metrics, an object of bucket counts
// for lifetime breakdowns.
type insightNumberOrMap struct {
	Number  int
	Buckets map[string]int
}

func (v *insightNumberOrMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '{' {
		return json.Unmarshal(data, &v.Buckets)
	}
	return json.Unmarshal(data, &v.Number)
}
