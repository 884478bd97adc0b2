package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/observatoire/observatoire/internal/domain"
	"github.com/observatoire/observatoire/internal/store"
)

// DefaultCollection is used when Connect is given an empty collection name.
const DefaultCollection = "agencies"

// Store is a Repository backed by one MongoDB collection.
type Store struct {
	client   *mongo.Client
	agencies *mongo.Collection
}

var (
	_ store.Repository = (*Store)(nil)
	_ store.Seeder     = (*Store)(nil)
)

type agencyDoc struct {
	Name        string    `bson:"name"`
	URL         string    `bson:"url"`
	Position    int64     `bson:"position"`
	LatestAudit *auditDoc `bson:"latest_audit,omitempty"`
}

type auditDoc struct {
	Date              time.Time `bson:"date"`
	Performance       float64   `bson:"performance"`
	Accessibility     float64   `bson:"accessibility"`
	BestPractices     float64   `bson:"best_practices"`
	SEO               float64   `bson:"seo"`
	Carbon            *float64  `bson:"carbon,omitempty"`
	CarbonCleanerThan *float64  `bson:"carbon_cleaner_than,omitempty"`
	ReportURL         string    `bson:"psi_report_url"`
	FaviconURL        string    `bson:"favicon_url"`
}

func toAuditDoc(a domain.AuditResult) *auditDoc {
	return &auditDoc{
		Date:              a.Date.UTC(),
		Performance:       a.Scores.Performance,
		Accessibility:     a.Scores.Accessibility,
		BestPractices:     a.Scores.BestPractices,
		SEO:               a.Scores.SEO,
		Carbon:            a.Scores.CarbonGramsPerView,
		CarbonCleanerThan: a.Scores.CarbonCleanerThanPercent,
		ReportURL:         a.Scores.ReportURL,
		FaviconURL:        a.Scores.FaviconURL,
	}
}

func (d *auditDoc) toDomain() *domain.AuditResult {
	if d == nil {
		return nil
	}
	return &domain.AuditResult{
		Date: d.Date.UTC(),
		Scores: domain.ScoreBundle{
			Performance:              d.Performance,
			Accessibility:            d.Accessibility,
			BestPractices:            d.BestPractices,
			SEO:                      d.SEO,
			CarbonGramsPerView:       d.Carbon,
			CarbonCleanerThanPercent: d.CarbonCleanerThan,
			ReportURL:                d.ReportURL,
			FaviconURL:               d.FaviconURL,
		},
	}
}

// Connect dials uri, pings the server and ensures the url index exists.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	s := &Store{
		client:   client,
		agencies: client.Database(database).Collection(collection),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	_, err := s.agencies.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "url", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "position", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: create indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ReadAll returns every agency ordered by position.
func (s *Store) ReadAll(ctx context.Context) ([]domain.Agency, error) {
	const op = "mongo.read"

	cur, err := s.agencies.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "could not query agencies")
	}
	defer cur.Close(ctx)

	out := []domain.Agency{}
	for cur.Next(ctx) {
		var d agencyDoc
		if err := cur.Decode(&d); err != nil {
			return nil, domain.Wrap(op, domain.KindIO, err, "could not decode agency document")
		}
		out = append(out, domain.Agency{Name: d.Name, URL: d.URL, LatestAudit: d.LatestAudit.toDomain()})
	}
	if err := cur.Err(); err != nil {
		return nil, domain.Wrap(op, domain.KindIO, err, "could not read agencies")
	}
	return out, nil
}

// UpdateByURL sets latest_audit on the document whose url matches exactly.
// No document is inserted when none matches.
func (s *Store) UpdateByURL(ctx context.Context, url string, audit domain.AuditResult) error {
	const op = "mongo.update"

	res, err := s.agencies.UpdateOne(ctx,
		bson.M{"url": url},
		bson.M{"$set": bson.M{"latest_audit": toAuditDoc(audit)}},
	)
	if err != nil {
		return domain.Wrap(op, domain.KindIO, err, "failed to write agency audit")
	}
	if res.MatchedCount == 0 {
		return store.NotFound(op, url)
	}
	return nil
}

// Seed inserts agencies whose url is not present yet. New documents are
// positioned after the current last one, in slice order.
func (s *Store) Seed(ctx context.Context, agencies []domain.Agency) (int, error) {
	const op = "mongo.seed"

	next, err := s.nextPosition(ctx)
	if err != nil {
		return 0, domain.Wrap(op, domain.KindIO, err, "could not read last position")
	}

	inserted := 0
	for _, a := range agencies {
		if a.URL == "" {
			continue
		}
		doc := agencyDoc{Name: a.Name, URL: a.URL, Position: next}
		if a.LatestAudit != nil {
			doc.LatestAudit = toAuditDoc(*a.LatestAudit)
		}
		res, err := s.agencies.UpdateOne(ctx,
			bson.M{"url": a.URL},
			bson.M{"$setOnInsert": doc},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return inserted, domain.Wrap(op, domain.KindIO, err, "could not insert "+a.URL)
		}
		if res.UpsertedCount > 0 {
			inserted++
			next++
		}
	}
	return inserted, nil
}

func (s *Store) nextPosition(ctx context.Context) (int64, error) {
	var last agencyDoc
	err := s.agencies.FindOne(ctx, bson.D{},
		options.FindOne().SetSort(bson.D{{Key: "position", Value: -1}}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Position + 1, nil
}
