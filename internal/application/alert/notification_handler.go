package alert

import (
	"context"
	"fmt"
	"strconv"

	"github.com/erp/stockledger/internal/domain/alert"
	"github.com/erp/stockledger/internal/domain/shared"
	"go.uber.org/zap"
)

// Notification is the message handed to an AlertNotifier
type Notification struct {
	AlertID        string   `json:"alert_id"`
	ProductID      string   `json:"product_id"`
	WarehouseID    string   `json:"warehouse_id"`
	Kind           string   `json:"kind"`       // "opened", "updated", "resolved"
	AlertType      string   `json:"alert_type"` // "low_stock", "out_of_stock", "overstock"
	Severity       string   `json:"severity"`
	Message        string   `json:"message"`
	CurrentValue   string   `json:"current_value"`
	ThresholdValue string   `json:"threshold_value"`
	AutoResolved   bool     `json:"auto_resolved"`
	Channels       []string `json:"channels"`
}

// AlertNotifier sends alert notifications.
// Implementations can support different channels (in-app, email, SMS, etc.)
type AlertNotifier interface {
	// SendAlert sends an alert notification
	SendAlert(ctx context.Context, notification Notification) error
}

// NotificationHandler consumes AlertStateChanged events after commit and
// forwards them to a notifier. Notification failures never fail the event.
type NotificationHandler struct {
	logger      *zap.Logger
	notifier    AlertNotifier
	minSeverity alert.Severity
	channels    []string
}

// NewNotificationHandler creates a new handler for alert state changes
func NewNotificationHandler(logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		logger:      logger,
		minSeverity: alert.SeverityLow,
		channels:    []string{"in_app"},
	}
}

// WithNotifier sets the notifier for sending alerts
func (h *NotificationHandler) WithNotifier(notifier AlertNotifier) *NotificationHandler {
	h.notifier = notifier
	return h
}

// WithMinSeverity drops opened/updated changes below the given severity.
// Resolutions are always forwarded.
func (h *NotificationHandler) WithMinSeverity(severity alert.Severity) *NotificationHandler {
	if severity.IsValid() {
		h.minSeverity = severity
	}
	return h
}

// WithChannels sets the channels stamped on outgoing notifications
func (h *NotificationHandler) WithChannels(channels ...string) *NotificationHandler {
	if len(channels) > 0 {
		h.channels = channels
	}
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{alert.EventTypeAlertStateChanged}
}

// Handle processes an AlertStateChangedEvent
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*alert.AlertStateChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", alert.EventTypeAlertStateChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			alert.EventTypeAlertStateChanged, event.EventType())
	}

	h.logger.Info("alert state changed",
		zap.String("alert_id", changed.AlertID.String()),
		zap.String("product_id", changed.ProductID.String()),
		zap.String("warehouse_id", changed.WarehouseID.String()),
		zap.String("kind", string(changed.Kind)),
		zap.String("alert_type", string(changed.AlertType)),
		zap.String("severity", string(changed.Severity)),
		zap.Int64("current_value", changed.CurrentValue),
		zap.Int64("threshold_value", changed.ThresholdValue),
	)

	if changed.Kind != alert.ChangeKindResolved && severityRank(changed.Severity) < severityRank(h.minSeverity) {
		h.logger.Debug("alert below notification severity",
			zap.String("alert_id", changed.AlertID.String()),
			zap.String("severity", string(changed.Severity)),
		)
		return nil
	}

	if h.notifier == nil {
		return nil
	}

	notification := Notification{
		AlertID:        changed.AlertID.String(),
		ProductID:      changed.ProductID.String(),
		WarehouseID:    changed.WarehouseID.String(),
		Kind:           string(changed.Kind),
		AlertType:      string(changed.AlertType),
		Severity:       string(changed.Severity),
		Message:        changed.Message,
		CurrentValue:   strconv.FormatInt(changed.CurrentValue, 10),
		ThresholdValue: strconv.FormatInt(changed.ThresholdValue, 10),
		AutoResolved:   changed.AutoResolved,
		Channels:       h.channels,
	}

	if err := h.notifier.SendAlert(ctx, notification); err != nil {
		h.logger.Error("failed to send alert notification",
			zap.String("alert_id", notification.AlertID),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Debug("alert notification sent",
		zap.String("alert_id", notification.AlertID),
		zap.Strings("channels", notification.Channels),
	)
	return nil
}

func severityRank(s alert.Severity) int {
	switch s {
	case alert.SeverityCritical:
		return 3
	case alert.SeverityHigh:
		return 2
	case alert.SeverityMedium:
		return 1
	default:
		return 0
	}
}

var _ shared.EventHandler = (*NotificationHandler)(nil)

// LoggingAlertNotifier is a notifier that writes alerts to the log
type LoggingAlertNotifier struct {
	logger *zap.Logger
}

// NewLoggingAlertNotifier creates a new logging notifier
func NewLoggingAlertNotifier(logger *zap.Logger) *LoggingAlertNotifier {
	return &LoggingAlertNotifier{
		logger: logger,
	}
}

// SendAlert logs the notification
func (n *LoggingAlertNotifier) SendAlert(ctx context.Context, notification Notification) error {
	n.logger.Warn("STOCK ALERT",
		zap.String("kind", notification.Kind),
		zap.String("type", notification.AlertType),
		zap.String("severity", notification.Severity),
		zap.String("product_id", notification.ProductID),
		zap.String("warehouse_id", notification.WarehouseID),
		zap.String("current_value", notification.CurrentValue),
		zap.String("threshold_value", notification.ThresholdValue),
		zap.Strings("channels", notification.Channels),
	)
	return nil
}

var _ AlertNotifier = (*LoggingAlertNotifier)(nil)
