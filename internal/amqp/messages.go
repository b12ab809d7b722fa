package amqp

import (
	"encoding/json"
	"time"
)

// ReportGeneratedMessage announces that an artifact has been written
// under the reports root. Consumers fetch the file by name; the message
// carries no document bytes.
type ReportGeneratedMessage struct {
	Filename    string    `json:"filename"`
	Kind        string    `json:"kind"`
	GeneratedAt time.Time `json:"generated_at"`
}

func NewReportGeneratedMessage(filename, kind string) *ReportGeneratedMessage {
	return &ReportGeneratedMessage{
		Filename:    filename,
		Kind:        kind,
		GeneratedAt: time.Now(),
	}
}

func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
