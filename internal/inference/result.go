package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Result is the classifier verdict.
type Result struct {
	Label          string `json:"label" yaml:"label"`
	Score          Score  `json:"score" yaml:"score"`
	LipReadingText string `json:"lip_reading_text,omitempty" yaml:"lip_reading_text,omitempty"`
	SpeechText     string `json:"speech_text,omitempty" yaml:"speech_text,omitempty"`
}

// Score keeps the server's score in its textual form. The classifier sends
// either a JSON number or a string such as "97.3%".
type Score string

func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
	case len(data) > 0 && data[0] == '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = Score(str)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("score: %w", err)
		}
		*s = Score(n.String())
	}
	return nil
}

func (s Score) String() string { return string(s) }

// Fraction interprets the score as a value in [0,1]. Values above 1 and up to
// 100, or with a trailing %, are read as percentages.
func (s Score) Fraction() (float64, bool) {
	raw := strings.TrimSpace(string(s))
	pct := strings.HasSuffix(raw, "%")
	raw = strings.TrimSpace(strings.TrimSuffix(raw, "%"))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	if pct || v > 1 {
		v /= 100
	}
	if v > 1 {
		return 0, false
	}
	return v, true
}
