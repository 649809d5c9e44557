// Package telemetry sets up OpenTelemetry tracing for the local server.
package telemetry
