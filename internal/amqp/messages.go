package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/store"
)

// MessageType identifies ledger change messages on the exchange.
const MessageType = "ledger.changed"

// LedgerChangedMessage tells other processes that an owner's records changed.
// Receivers reload the owner's ledger; the message carries no record data.
type LedgerChangedMessage struct {
	OwnerID   string    `json:"ownerId"`
	Op        store.Op  `json:"op"`
	RecordID  string    `json:"recordId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
}

// NewLedgerChangedMessage stamps a change with the publishing process.
func NewLedgerChangedMessage(c store.Change, origin string) *LedgerChangedMessage {
	op := c.Op
	if op == "" {
		op = store.OpChanged
	}
	return &LedgerChangedMessage{
		OwnerID:   c.OwnerID,
		Op:        op,
		RecordID:  c.RecordID,
		Timestamp: time.Now().UTC(),
		Origin:    origin,
	}
}

// Change converts the message back into a store change.
func (m *LedgerChangedMessage) Change() store.Change {
	return store.Change{OwnerID: m.OwnerID, Op: m.Op, RecordID: m.RecordID}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerChangedMessageFromJSON creates a message from JSON bytes
func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
