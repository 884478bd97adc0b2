// Package domain holds the agency records persisted by the store, the audit
// score bundle produced by the scraper, and the error kinds shared by the
// refresh pipeline and the HTTP layer.
package domain
