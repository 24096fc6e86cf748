package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbox event types published for downstream consumers.
const (
	EventMeasurementRecorded = "MEASUREMENT_RECORDED"
	EventWarningDetected     = "WARNING_DETECTED"
	EventPatientDeleted      = "PATIENT_DELETED"
)

// OutboxStatus tracks an event through the transactional outbox.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxEvent is a pending domain event persisted alongside the write that
// produced it and published asynchronously by the worker.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}
