// Package httpapi exposes a storefront session over HTTP.
//
// Commands and queries are JSON endpoints routed with chi. State changes
// are pushed to clients over a websocket at /events, and Prometheus
// metrics are served at /metrics.
//
// Errors are reported as {"error": {"code": ..., "message": ...}}.
package httpapi
