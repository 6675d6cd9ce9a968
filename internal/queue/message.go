package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidMessage marks a message that can never be processed.
var ErrInvalidMessage = errors.New("invalid queue message")

// QueueArtifactMsg asks the worker to process one artifact. Exactly one of
// S3Key and Code carries the content.
type QueueArtifactMsg struct {
	ArtifactID string `json:"artifact_id"`
	S3Key      string `json:"s3_key,omitempty"`
	Code       string `json:"code,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	Simulate   bool   `json:"simulate,omitempty"`
}

func (m QueueArtifactMsg) Validate() error {
	hasKey := strings.TrimSpace(m.S3Key) != ""
	hasCode := strings.TrimSpace(m.Code) != ""
	if hasKey == hasCode {
		return fmt.Errorf("%w: exactly one of s3_key and code is required", ErrInvalidMessage)
	}
	return nil
}

func DecodeArtifactMsg(body []byte) (QueueArtifactMsg, error) {
	var msg QueueArtifactMsg
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg, msg.Validate()
}

// PublishArtifact enqueues msg on the artifact queue.
func PublishArtifact(ch Publisher, msg QueueArtifactMsg) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return PublishFIFO(ch, ArtifactQueue, data)
}
