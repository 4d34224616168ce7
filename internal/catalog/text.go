package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"book-recommender/internal/common/textutil"
)

// Text decodes an upstream description that is either a plain JSON string or
// an object carrying the string under "value" (Open Library returns both
// shapes for the same field). Anything else decodes to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '{':
		var obj struct {
			Value json.RawMessage `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		var inner Text
		if len(obj.Value) > 0 {
			if err := inner.UnmarshalJSON(obj.Value); err != nil {
				return err
			}
		}
		*t = inner
	default:
		*t = ""
	}
	return nil
}

// Clean strips markup and normalizes whitespace.
func (t Text) Clean() string {
	return textutil.Normalize(textutil.StripHTML(strings.TrimSpace(string(t))))
}
