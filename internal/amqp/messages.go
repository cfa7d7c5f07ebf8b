package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Routing keys on the payables exchange. Aging report requests are routed
// by queue name.
const RoutingKeyInvoiceIngested = "invoice.ingested"

var ErrInvalidMessage = errors.New("invalid message")

// AgingReportRequestedMessage asks a worker to build and store an aging
// report for a user. The worker reads the invoices itself.
type AgingReportRequestedMessage struct {
	UserID      string    `json:"user_id"`
	RequestID   string    `json:"request_id,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewAgingReportRequestedMessage(userID, requestID string) *AgingReportRequestedMessage {
	return &AgingReportRequestedMessage{
		UserID:      userID,
		RequestID:   requestID,
		RequestedAt: time.Now().UTC(),
	}
}

func (m *AgingReportRequestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AgingReportRequestedMessageFromJSON(data []byte) (*AgingReportRequestedMessage, error) {
	var msg AgingReportRequestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID == "" {
		return nil, errors.Join(ErrInvalidMessage, errors.New("user_id is required"))
	}
	return &msg, nil
}

// InvoiceIngestedMessage announces a stored invoice.
type InvoiceIngestedMessage struct {
	InvoiceID  string     `json:"invoice_id"`
	UserID     string     `json:"user_id"`
	VendorName string     `json:"vendor_name,omitempty"`
	AmountDue  string     `json:"amount_due,omitempty"`
	Currency   string     `json:"currency,omitempty"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ImageURI   string     `json:"image_uri,omitempty"`
	IngestedAt time.Time  `json:"ingested_at"`
}

func (m *InvoiceIngestedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InvoiceIngestedMessageFromJSON(data []byte) (*InvoiceIngestedMessage, error) {
	var msg InvoiceIngestedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.InvoiceID == "" || msg.UserID == "" {
		return nil, errors.Join(ErrInvalidMessage, errors.New("invoice_id and user_id are required"))
	}
	return &msg, nil
}
