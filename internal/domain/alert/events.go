package alert

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateTypeAlertState is the aggregate type name used on events
const AggregateTypeAlertState = "AlertState"

// EventTypeAlertStateChanged is raised for every committed StateChange
const EventTypeAlertStateChanged = "AlertStateChanged"

// AlertStateChangedEvent is the notification-sink view of a StateChange
type AlertStateChangedEvent struct {
	shared.BaseDomainEvent
	AlertID         uuid.UUID  `json:"alert_id"`
	ProductID       uuid.UUID  `json:"product_id"`
	WarehouseID     uuid.UUID  `json:"warehouse_id"`
	Kind            ChangeKind `json:"kind"`
	AlertType       AlertType  `json:"alert_type"`
	Severity        Severity   `json:"severity"`
	Message         string     `json:"message"`
	ThresholdValue  int64      `json:"threshold_value"`
	CurrentValue    int64      `json:"current_value"`
	PreviousValue   int64      `json:"previous_value"`
	AutoResolved    bool       `json:"auto_resolved"`
	ResolutionNotes string     `json:"resolution_notes,omitempty"`
}

// NewAlertStateChangedEvent creates the event for change
func NewAlertStateChangedEvent(change StateChange, now time.Time) *AlertStateChangedEvent {
	a := change.Alert
	return &AlertStateChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeAlertStateChanged, AggregateTypeAlertState, a.ID, now),
		AlertID:         a.ID,
		ProductID:       a.ProductID,
		WarehouseID:     a.WarehouseID,
		Kind:            change.Kind,
		AlertType:       a.AlertType,
		Severity:        a.Severity,
		Message:         a.Message,
		ThresholdValue:  a.ThresholdValue,
		CurrentValue:    a.CurrentValue,
		PreviousValue:   change.PreviousValue,
		AutoResolved:    change.AutoResolved,
		ResolutionNotes: a.ResolutionNotes,
	}
}

// EventsFor converts a change list into publishable events
func EventsFor(changes []StateChange, now time.Time) []shared.DomainEvent {
	events := make([]shared.DomainEvent, 0, len(changes))
	for _, c := range changes {
		events = append(events, NewAlertStateChangedEvent(c, now))
	}
	return events
}
