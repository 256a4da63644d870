package observability

// Package observability provides structured logging and Prometheus metrics
// for iacscan.
//
// Key features:
// - Structured JSON logging with configurable log levels and UTC timestamps
// - Prometheus metrics for tool runs, sessions, and alternative lookups
// - An optional HTTP /metrics endpoint for long-running scans
