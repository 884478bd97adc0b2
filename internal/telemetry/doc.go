// Package telemetry keeps the process counters and serves them in the
// Prometheus text exposition format on /metrics.
//
// Families are built directly as client_model protobufs and written with
// expfmt, the same representation the scrapers of a Prometheus server read.
package telemetry
