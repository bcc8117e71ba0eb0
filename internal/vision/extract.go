package vision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// eventTypeMap translates the model's Chinese category answer into the
// stored event-type key.
var eventTypeMap = map[string]string{
	"学术研究":  "academic_research",
	"教学培训":  "teaching_training",
	"学生活动":  "student_activities",
	"产学研合作": "industry_academia",
	"行政管理":  "administration",
	"重要截止":  "important_deadlines",
}

// rawExtraction tolerates the shapes the model actually produces:
// strings where arrays were asked for, explicit nulls, extra prose
// around the JSON blob.
type rawExtraction struct {
	Title         *string      `json:"title"`
	Content       *string      `json:"content"`
	Date          *string      `json:"date"`
	StartTime     *string      `json:"startTime"`
	EndTime       *string      `json:"endTime"`
	Location      *string      `json:"location"`
	Organizers    stringOrList `json:"organizers"`
	EventType     *string      `json:"eventType"`
	Tags          stringOrList `json:"tags"`
	Link          *string      `json:"link"`
	DatePrecision *string      `json:"datePrecision"`
}

// stringOrList decodes either a JSON array of strings or a single
// string into a slice.
type stringOrList []string

func (s *stringOrList) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*s = nil
		return nil
	}
	*s = []string{single}
	return nil
}

// ParseExtraction pulls the first JSON object out of the model's answer
// and normalizes it. The model often wraps the JSON in markdown fences
// or explanatory prose.
func ParseExtraction(answer string) (*Extraction, error) {
	blob := extractJSONObject(answer)
	if blob == "" {
		return nil, fmt.Errorf("model answer contains no JSON object")
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, fmt.Errorf("parse model answer: %w", err)
	}

	e := &Extraction{
		Title:      deref(raw.Title),
		Content:    deref(raw.Content),
		Date:       deref(raw.Date),
		StartTime:  deref(raw.StartTime),
		EndTime:    deref(raw.EndTime),
		Location:   deref(raw.Location),
		Organizers: raw.Organizers,
		Tags:       raw.Tags,
		Link:       deref(raw.Link),
	}
	if e.Organizers == nil {
		e.Organizers = []string{}
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}

	// Only the six known Chinese categories map; anything else is
	// dropped rather than guessed.
	if t := deref(raw.EventType); t != "" {
		e.EventType = eventTypeMap[t]
	}

	e.DatePrecision = deref(raw.DatePrecision)
	if e.DatePrecision != "month" {
		e.DatePrecision = "exact"
	}

	return e, nil
}

// extractJSONObject returns the first balanced {...} block in s, or ""
// when none exists. Brace matching ignores braces inside JSON strings.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
