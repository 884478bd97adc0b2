// Package refresh runs a single-agency re-audit.
//
// Orchestrator.Refresh walks a fixed sequence of stages (validate, rate
// limit, credentials, fetch, persist, commit) and stops at the first one
// that fails. The result is always an Outcome: the stage reached, the
// domain.Kind of the failure (KindNone on success), a viewer-facing message
// and, on success, the fresh scores. Nothing is retried.
//
// The rate-limit lock is placed only at the commit stage, after the new
// audit is durably stored. A failed attempt leaves the requester free to
// try again immediately.
package refresh
