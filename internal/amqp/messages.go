package amqp

import (
	"encoding/json"
	"time"
)

// ArchiveMessage asks the worker to copy one committed expense into its
// owner's CSV archive. The payload carries only the row id; the worker
// refetches the full row so stale messages never archive stale data.
type ArchiveMessage struct {
	ExpenseID int64     `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewArchiveMessage builds a message for one expense row.
func NewArchiveMessage(expenseID int64) *ArchiveMessage {
	return &ArchiveMessage{
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ArchiveMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ArchiveMessageFromJSON parses a message from JSON bytes.
func ArchiveMessageFromJSON(data []byte) (*ArchiveMessage, error) {
	var msg ArchiveMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
