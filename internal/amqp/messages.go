package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdviceRecordedMessage announces a new history entry. It carries only IDs;
// the worker reads the entry itself from the database.
type AdviceRecordedMessage struct {
	MessageID string    `json:"message_id"`
	EntryID   int64     `json:"entry_id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAdviceRecordedMessage(entryID, userID int64) *AdviceRecordedMessage {
	return &AdviceRecordedMessage{
		MessageID: uuid.NewString(),
		EntryID:   entryID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *AdviceRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// AdviceRecordedMessageFromJSON decodes and validates a message body.
func AdviceRecordedMessageFromJSON(data []byte) (*AdviceRecordedMessage, error) {
	var msg AdviceRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EntryID <= 0 {
		return nil, fmt.Errorf("invalid entry id %d", msg.EntryID)
	}
	return &msg, nil
}
