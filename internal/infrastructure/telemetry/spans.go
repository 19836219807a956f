package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names spans started by application services
const TracerName = "github.com/erp/stockledger"

// Span attribute keys shared by services
const (
	AttrProductID   = attribute.Key("stock.product_id")
	AttrWarehouseID = attribute.Key("stock.warehouse_id")
	AttrOperation   = attribute.Key("stock.operation")
	AttrErrorCode   = attribute.Key("stock.error_code")
)

// StartServiceSpan starts an internal span named "{service}.{method}" on the global tracer.
//
//	ctx, span := telemetry.StartServiceSpan(ctx, "stock", "transfer")
//	defer span.End()
func StartServiceSpan(ctx context.Context, service, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, service+"."+method,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// RecordError marks span failed with err. code, when set, is attached as the
// stable error code so failures can be grouped without parsing messages.
func RecordError(span trace.Span, err error, code string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if code != "" {
		span.SetAttributes(AttrErrorCode.String(code))
	}
}
