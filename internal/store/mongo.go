package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const serverSelectionTimeout = 5 * time.Second

// ErrNotConnected is returned when an operation runs before Connect (or after
// Close).
var ErrNotConnected = errors.New("store: not connected, call Connect first")

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("store: organization not found")

// Client wraps a MongoDB-compatible server (MongoDB, FerretDB) with the
// operations the CLI and the enrichment job need. It holds a single
// connection handle scoped between Connect and Close.
type Client struct {
	uri        string
	dbName     string
	collName   string
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// New creates an unconnected Client for the given server and namespace.
func New(uri, database, collection string) *Client {
	return &Client{
		uri:      uri,
		dbName:   database,
		collName: collection,
		logger:   slog.Default(),
	}
}

// Connect establishes and verifies the connection within a bounded timeout.
func (c *Client) Connect(ctx context.Context) error {
	opts := options.Client().
		ApplyURI(c.uri).
		SetServerSelectionTimeout(serverSelectionTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", c.dbName, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("pinging %s: %w", c.dbName, err)
	}

	c.client = client
	c.collection = client.Database(c.dbName).Collection(c.collName)
	c.logger.Info("connected to document store", "database", c.dbName, "collection", c.collName)
	return nil
}

// Close releases the connection. Safe to call on an unconnected client.
func (c *Client) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(ctx)
	c.client = nil
	c.collection = nil
	if err != nil {
		return fmt.Errorf("closing connection: %w", err)
	}
	return nil
}

func (c *Client) connected() bool {
	return c.client != nil && c.collection != nil
}

// SetupCollection creates the organizations collection with its schema
// validator and indexes. It is idempotent: calling it against an existing
// collection only re-asserts the indexes, which the server treats as a no-op.
func (c *Client) SetupCollection(ctx context.Context) error {
	if !c.connected() {
		return ErrNotConnected
	}

	db := c.client.Database(c.dbName)
	names, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: c.collName}})
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	if len(names) == 0 {
		validator := bson.M{
			"$jsonSchema": bson.M{
				"bsonType": "object",
				"required": []string{"name", "root", "jobs", "status"},
				"properties": bson.M{
					"name":    bson.M{"bsonType": "string", "minLength": 1},
					"root":    bson.M{"bsonType": "string", "pattern": "^https?://"},
					"jobs":    bson.M{"bsonType": "string", "pattern": "^https?://"},
					"status":  bson.M{"enum": []string{StatusActive, StatusInactive, StatusPending}},
					"scraped": bson.M{"bsonType": "bool"},
				},
			},
		}
		if err := db.CreateCollection(ctx, c.collName, options.CreateCollection().SetValidator(validator)); err != nil {
			return fmt.Errorf("creating collection %s: %w", c.collName, err)
		}
		c.logger.Info("created collection with schema validator", "collection", c.collName)
	}

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "root", Value: 1}}},
		{Keys: bson.D{{Key: "jobs", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "scraped", Value: 1}}},
		{Keys: bson.D{{Key: "last_scraped", Value: 1}}},
	}
	if _, err := c.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("creating indexes: %w", err)
	}

	return nil
}

// Populate upserts each record keyed on name. Re-running setup against the
// same file updates root/jobs/status in place and leaves enrichment fields
// (scraped, job_titles) untouched.
func (c *Client) Populate(ctx context.Context, orgs []Organization) (PopulateResult, error) {
	var res PopulateResult
	if !c.connected() {
		return res, ErrNotConnected
	}

	for _, org := range orgs {
		if err := org.Validate(); err != nil {
			return res, fmt.Errorf("refusing to store invalid record: %w", err)
		}

		update := bson.M{
			"$set": bson.M{
				"name":   org.Name,
				"root":   org.Root,
				"jobs":   org.Jobs,
				"status": org.Status,
			},
			"$setOnInsert": bson.M{
				"scraped":    false,
				"created_at": time.Now().UTC(),
			},
		}
		r, err := c.collection.UpdateOne(ctx, bson.M{"name": org.Name}, update, options.Update().SetUpsert(true))
		if err != nil {
			return res, fmt.Errorf("upserting %q: %w", org.Name, err)
		}
		if r.UpsertedCount > 0 {
			res.Inserted++
		} else if r.ModifiedCount > 0 {
			res.Updated++
		}
	}

	c.logger.Info("populated collection", "inserted", res.Inserted, "updated", res.Updated)
	return res, nil
}

// Search returns organizations whose name contains term, case-insensitively.
// The term is quoted, so it is a substring match rather than a regex.
func (c *Client) Search(ctx context.Context, term string, limit int64) ([]Organization, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}
	if limit <= 0 {
		limit = 10
	}

	filter := bson.M{"name": primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}}
	return c.find(ctx, filter, limit)
}

// ByDomain returns organizations whose root URL contains the given suffix
// (e.g. ".org").
func (c *Client) ByDomain(ctx context.Context, suffix string) ([]Organization, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}

	filter := bson.M{"root": primitive.Regex{Pattern: regexp.QuoteMeta(suffix), Options: "i"}}
	return c.find(ctx, filter, 0)
}

// Unscraped returns up to limit organizations that have not been scraped yet.
func (c *Client) Unscraped(ctx context.Context, limit int64) ([]Organization, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}

	filter := bson.M{"scraped": bson.M{"$ne": true}}
	return c.find(ctx, filter, limit)
}

// Organizations returns up to limit records in store order; limit <= 0 means
// all of them.
func (c *Client) Organizations(ctx context.Context, limit int64) ([]Organization, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}
	return c.find(ctx, bson.M{}, limit)
}

// FindByName returns the organization with the exact given name, or
// ErrNotFound.
func (c *Client) FindByName(ctx context.Context, name string) (*Organization, error) {
	if !c.connected() {
		return nil, ErrNotConnected
	}

	var org Organization
	err := c.collection.FindOne(ctx, bson.M{"name": name}).Decode(&org)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding %q: %w", name, err)
	}
	return &org, nil
}

func (c *Client) find(ctx context.Context, filter bson.M, limit int64) ([]Organization, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := c.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying organizations: %w", err)
	}
	defer cursor.Close(ctx)

	var orgs []Organization
	if err := cursor.All(ctx, &orgs); err != nil {
		return nil, fmt.Errorf("decoding organizations: %w", err)
	}
	return orgs, nil
}

// SetJobTitles records an enrichment result. A nil titles slice is stored as
// an explicit null, marking the organization as processed with no openings
// found. A non-empty jobsURL replaces the stored jobs URL (career page
// corrections discovered during enrichment).
func (c *Client) SetJobTitles(ctx context.Context, name, jobsURL string, titles []string) error {
	if !c.connected() {
		return ErrNotConnected
	}

	now := time.Now().UTC()
	set := bson.M{
		"job_titles":                   titles,
		"job_titles_extraction_method": ExtractionMethodClaude,
		"job_titles_updated_at":        now,
		"scraped":                      true,
		"last_scraped":                 now,
	}
	if jobsURL != "" {
		set["jobs"] = jobsURL
	}

	r, err := c.collection.UpdateOne(ctx, bson.M{"name": name}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating job titles for %q: %w", name, err)
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateScrapeStatus records the outcome of a scrape attempt.
func (c *Client) UpdateScrapeStatus(ctx context.Context, name string, ok bool, errMsg string) error {
	if !c.connected() {
		return ErrNotConnected
	}

	set := bson.M{
		"scraped":      ok,
		"last_scraped": time.Now().UTC(),
	}
	if errMsg != "" {
		set["last_error"] = errMsg
	}

	r, err := c.collection.UpdateOne(ctx, bson.M{"name": name}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("updating scrape status for %q: %w", name, err)
	}
	if r.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns an aggregate view of the collection.
func (c *Client) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	if !c.connected() {
		return s, ErrNotConnected
	}

	var err error
	if s.Total, err = c.collection.CountDocuments(ctx, bson.M{}); err != nil {
		return s, fmt.Errorf("counting organizations: %w", err)
	}
	if s.Scraped, err = c.collection.CountDocuments(ctx, bson.M{"scraped": true}); err != nil {
		return s, fmt.Errorf("counting scraped: %w", err)
	}
	filter := bson.M{"job_titles": bson.M{"$exists": true, "$ne": nil}}
	if s.WithJobTitles, err = c.collection.CountDocuments(ctx, filter); err != nil {
		return s, fmt.Errorf("counting job titles: %w", err)
	}
	domainFilter := bson.M{"root": primitive.Regex{Pattern: `\.org`, Options: "i"}}
	if s.OrgDomains, err = c.collection.CountDocuments(ctx, domainFilter); err != nil {
		return s, fmt.Errorf("counting .org domains: %w", err)
	}
	return s, nil
}

// TestDatabase runs the sanity check suite: ping, count, a named lookup, a
// write-then-read probe, and a sample listing. Individual check failures are
// reported in the result, not returned as errors; only a broken connection
// aborts the suite.
func (c *Client) TestDatabase(ctx context.Context, orgName string) (*TestReport, error) {
	report := &TestReport{}
	if !c.connected() {
		return report, ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	err := c.client.Ping(pingCtx, readpref.Primary())
	cancel()
	if err != nil {
		report.add("connectivity", false, err.Error())
		return report, fmt.Errorf("connection lost: %w", err)
	}
	report.add("connectivity", true, "")

	count, err := c.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		report.add("count", false, err.Error())
	} else {
		report.Count = count
		report.add("count", true, fmt.Sprintf("%d organizations", count))
	}

	org, err := c.FindByName(ctx, orgName)
	switch {
	case err == nil:
		report.Org = org
		report.add("named query", true, org.Name)
	case errors.Is(err, ErrNotFound):
		report.add("named query", false, fmt.Sprintf("%q not found", orgName))
	default:
		report.add("named query", false, err.Error())
	}

	report.add(c.writeProbe(ctx))

	sample, err := c.find(ctx, bson.M{}, 5)
	if err != nil {
		report.add("sample", false, err.Error())
	} else {
		report.Sample = sample
		report.add("sample", true, fmt.Sprintf("%d records", len(sample)))
	}

	return report, nil
}

// writeProbe upserts a throwaway document, reads it back, and deletes it.
func (c *Client) writeProbe(ctx context.Context) (string, bool, string) {
	const check = "write-then-read"
	name := "_anajobs-probe-" + uuid.NewString()

	doc := bson.M{
		"name":    name,
		"root":    "https://probe.invalid",
		"jobs":    "https://probe.invalid/jobs",
		"status":  StatusActive,
		"scraped": false,
	}
	if _, err := c.collection.UpdateOne(ctx, bson.M{"name": name}, bson.M{"$set": doc}, options.Update().SetUpsert(true)); err != nil {
		return check, false, fmt.Sprintf("write: %v", err)
	}
	defer func() {
		if _, err := c.collection.DeleteOne(ctx, bson.M{"name": name}); err != nil {
			c.logger.Warn("could not remove probe document", "name", name, "error", err)
		}
	}()

	var got Organization
	if err := c.collection.FindOne(ctx, bson.M{"name": name}).Decode(&got); err != nil {
		return check, false, fmt.Sprintf("read: %v", err)
	}
	return check, true, ""
}
