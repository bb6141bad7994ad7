// Package httputil provides shared HTTP response/request utilities for the
// API handlers, so every endpoint answers with the same JSON envelope.
package httputil
