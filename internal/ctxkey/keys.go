// Package ctxkey defines shared context key types used across multiple
// packages. This package should have no dependencies on other internal
// packages to avoid import cycles.
package ctxkey

// LoggerKey is the context key type for the enriched logger, carrying
// conn_id/role fields, attached by the connection controller to the
// context it hands the handler's Init callback.
type LoggerKey struct{}
