package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const TopicTransferCompleted = "transfer_completed"

type Publisher interface {
	Publish(topic string, event any) error
}

// TransferCompleted is emitted after a transfer commits. Publishing is
// best-effort and never affects the outcome of the transfer itself.
type TransferCompleted struct {
	TransferOutID string          `json:"transfer_out_id"`
	TransferInID  string          `json:"transfer_in_id"`
	FromAccount   string          `json:"from_account"`
	ToAccount     string          `json:"to_account"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

// NoopPublisher discards events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(string, any) error { return nil }
