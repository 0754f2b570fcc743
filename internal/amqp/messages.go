package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// ImportJobMessage announces a pending import job. It carries only the id;
// the worker loads the job itself.
type ImportJobMessage struct {
	JobID     string    `json:"jobId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewImportJobMessage builds the message announcing a queued job.
func NewImportJobMessage(jobID string) *ImportJobMessage {
	return &ImportJobMessage{
		JobID:     jobID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportJobMessageFromJSON decodes a message and rejects one without a job id.
func ImportJobMessageFromJSON(data []byte) (*ImportJobMessage, error) {
	var msg ImportJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.JobID == "" {
		return nil, errors.New("import job message without jobId")
	}
	return &msg, nil
}
