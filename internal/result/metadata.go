package result

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// gradescopeMetadata mirrors the fields of submission_metadata.json that
// affect grading.
type gradescopeMetadata struct {
	CreatedAt  time.Time `json:"created_at"`
	Assignment struct {
		TotalPoints json.Number `json:"total_points"`
		DueDate     time.Time   `json:"due_date"`
	} `json:"assignment"`
	PreviousSubmissions []json.RawMessage `json:"previous_submissions"`
}

// ParseMetadata decodes a submission_metadata.json document.
func ParseMetadata(data []byte) (Metadata, error) {
	var raw gradescopeMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", err)
	}
	m := Metadata{PriorSubmissions: len(raw.PreviousSubmissions)}
	if raw.Assignment.TotalPoints != "" {
		points, err := raw.Assignment.TotalPoints.Float64()
		if err != nil {
			return Metadata{}, fmt.Errorf("parsing total_points: %w", err)
		}
		m.TotalPoints = points
	}
	if !raw.CreatedAt.IsZero() && !raw.Assignment.DueDate.IsZero() {
		m.TimeSincePastDue = raw.CreatedAt.Sub(raw.Assignment.DueDate)
	}
	return m, nil
}

func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("reading metadata: %w", err)
	}
	return ParseMetadata(data)
}
