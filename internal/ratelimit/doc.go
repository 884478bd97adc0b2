// Package ratelimit gates refresh requests with a per-(requester, subject)
// cooldown. Check never places a lock; Commit does, and only after a
// refresh succeeded, so a failed attempt can be retried at once.
//
// Entries expire lazily on lookup. Run adds an optional background sweep
// so abandoned keys do not accumulate.
package ratelimit
