package amqp

import (
	"encoding/json"
	"time"
)

// MonthSyncMessage asks the worker to push one month's log to the remote
// sheet. It carries only the month key; the worker loads the current
// state from the database, so stale messages converge on the latest log.
type MonthSyncMessage struct {
	Month     string    `json:"month"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewMonthSyncMessage(month, reason string) *MonthSyncMessage {
	return &MonthSyncMessage{
		Month:     month,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

func (m *MonthSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MonthSyncMessageFromJSON(data []byte) (*MonthSyncMessage, error) {
	var msg MonthSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
