// Package server runs pokercircle as a long-lived HTTP service.
//
// New opens the SQLite database, selects the session backend (SQLite or
// Redis), and mounts the web app next to the operational endpoints:
//
//	GET /health        liveness, always "OK"
//	GET /health/ready  pings the database and, when used, Redis
//	GET /metrics       Prometheus exposition when metrics are enabled
//
// Run listens on server.http_addr, or on a tsnet node when Tailscale is
// enabled, and runs a janitor that sweeps expired sessions and prunes idle
// failed-login limiter entries every session.sweep_interval. Cancelling the
// context triggers a graceful shutdown with a five second deadline.
package server
