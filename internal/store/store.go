package store

import (
	"context"

	"github.com/observatoire/observatoire/internal/domain"
)

// Repository is the durable agency collection.
type Repository interface {
	// ReadAll returns every agency in storage order. A store that has never
	// been written returns an empty slice.
	ReadAll(ctx context.Context) ([]domain.Agency, error)

	// UpdateByURL replaces the latest audit of the agency whose URL equals
	// url exactly. It fails with domain.KindNotFound when no agency
	// matches and with domain.KindIO when the write cannot complete.
	UpdateByURL(ctx context.Context, url string, audit domain.AuditResult) error
}

// Seeder loads agencies created out of band. Agencies whose URL is already
// present are left alone.
type Seeder interface {
	Seed(ctx context.Context, agencies []domain.Agency) (inserted int, err error)
}

// NotFound builds the error every backend returns for an unknown agency URL.
func NotFound(op, url string) error {
	return domain.Errorf(op, domain.KindNotFound,
		"agency URL %s not found in store; no update performed", url)
}
