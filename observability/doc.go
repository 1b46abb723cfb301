// Package observability wires OpenTelemetry tracing and metrics for
// dispatched provisioning calls.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("provisioner-client"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("provisioner-client"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	metrics.RecordDispatchEnd(ctx, "GET", observability.ModeBuffered, observability.OutcomeSuccess, 200, elapsed)
//
// Health:
//
//	health := observability.NewServiceHealth("provisioner", version.GetShortVersion())
//	health.AddComponent(client.CheckHealth(ctx))
package observability
