package models

import "time"

// Payment event processing statuses
const (
	PaymentEventPending   = "PENDING"
	PaymentEventProcessed = "PROCESSED"
	PaymentEventFailed    = "FAILED"
)

// Payment event types
const (
	EventTypeInvoice        = "invoice"
	EventTypeDisbursement   = "disbursement"
	EventTypeVirtualAccount = "virtual_account"
)

// PaymentEvent stores provider webhook payloads with deduplication metadata
// for idempotent processing. The audit row is written before any side effect,
// so a crash mid-apply leaves a PENDING record rather than nothing. The
// (provider, external_event_id) pair is unique: at most one delivery of a
// logical event ever reaches PROCESSED.
type PaymentEvent struct {
	ID                 uint   `gorm:"primarykey"`
	Provider           string `gorm:"size:32;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ExternalEventID    string `gorm:"size:191;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType          string `gorm:"size:32;not null;index"`
	PayloadJSON        string `gorm:"type:text;not null"`
	SignatureValid     bool   `gorm:"default:false;index"`
	Status             string `gorm:"size:16;not null;default:'PENDING';index"`
	LinkedOrderID      *uint  `gorm:"index"`
	LinkedWithdrawalID *uint  `gorm:"index"`
	RetryCount         int    `gorm:"default:0"`
	ProcessingError    string `gorm:"type:text"`
	ProcessedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
