// Package auth issues and checks the opaque tokens that gate the two data
// operations: reading the leaderboard and requesting a refresh.
//
// A token is an HMAC-SHA256 over (scope, identity, time window) keyed by a
// server secret. Read tokens are not bound to a caller; write tokens are
// bound to the requester's IP. A token stays valid for the window it was
// issued in and the next one.
//
// Issuer.Require wraps an http.Handler and rejects requests with a missing
// or wrong token with 403 before the handler runs. In mode "none" every
// request passes.
package auth
