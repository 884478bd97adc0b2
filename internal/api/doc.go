// Package api implements the observatoire HTTP API.
//
// New returns a Handler whose chi router serves:
//
//	GET  /api/v1/agencies    ranked leaderboard (read token); ?sort=&order=
//	POST /api/v1/refresh     re-audit one agency (write token, bound to IP)
//	GET  /api/v1/sort/next   next sort state for a clicked column
//	GET  /api/v1/tokens      read and write tokens for the caller
//	GET  /api/v1/health      liveness and agency count
//
// Every response is JSON. Errors carry {"message": ...}. Token failures are
// answered with 403 before any other check. The leaderboard read never
// fails the view: a missing or unreadable store yields [] with 200.
//
// JSON types are defined in types.go.
package api
