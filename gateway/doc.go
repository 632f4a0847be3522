// Package gateway hosts the HTTP surface of kska.
//
// A single chi router serves three endpoints:
//
//	GET {ip_path}   local address listing (default /ka/getLocalIp)
//	GET /health     aggregated component health
//	GET /metrics    Prometheus exposition, when a registry is supplied
//
// The router carries request id, real ip, panic recovery and slash stripping
// middleware, plus a structured access log. Unknown paths and methods answer
// with a small JSON error document.
package gateway
