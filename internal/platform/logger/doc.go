// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package to implement structured JSON logging
// with configurable log levels. Every handler built by this package redacts sensitive
// values before they reach the output, and request-scoped loggers travel through
// context.Context so that each record carries the request's correlation id.
package logger
