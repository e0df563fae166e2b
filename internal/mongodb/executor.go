package mongodb

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultLimit applies when the caller omits or zeroes the find limit.
	DefaultLimit = 10
	// MaxLimit caps every result set, find and aggregate alike.
	MaxLimit = 100
)

// FindParams is a fully validated find request. Raw strings are kept for
// echoing back in the result header.
type FindParams struct {
	Database   string
	Collection string

	Filter     bson.D
	Projection bson.D
	Sort       bson.D
	Limit      int64

	RawFilter     string
	RawProjection string
	RawSort       string
}

// CountParams is a fully validated count request.
type CountParams struct {
	Database   string
	Collection string
	Filter     bson.D
	RawFilter  string
}

// AggregateParams is a fully validated aggregation request.
type AggregateParams struct {
	Database    string
	Collection  string
	Pipeline    []bson.D
	RawPipeline string
}

// RequireName checks a mandatory identifier parameter. All name validation
// happens before any network activity.
func RequireName(label, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s name is required", ErrValidation, label)
	}
	return nil
}

// ParseFilter parses an extended JSON document into an order-preserving
// bson.D. Empty input means "match everything".
func ParseFilter(label, raw string) (bson.D, error) {
	if strings.TrimSpace(raw) == "" {
		return bson.D{}, nil
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON([]byte(raw), false, &doc); err != nil {
		return nil, fmt.Errorf("%w: invalid %s JSON: %v", ErrValidation, label, err)
	}
	return doc, nil
}

// ParsePipeline parses an extended JSON stage array. A bare document is
// rejected: stage order is semantic and only an array expresses it.
func ParsePipeline(raw string) ([]bson.D, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "[]" {
		return nil, nil
	}
	if !strings.HasPrefix(trimmed, "[") {
		return nil, fmt.Errorf("%w: pipeline must be a JSON array of stages", ErrValidation)
	}
	// UnmarshalExtJSON wants a document at the top level, so the array is
	// wrapped in one.
	var wrapper struct {
		Pipeline []bson.D `bson:"pipeline"`
	}
	wrapped := fmt.Sprintf(`{"pipeline": %s}`, trimmed)
	if err := bson.UnmarshalExtJSON([]byte(wrapped), false, &wrapper); err != nil {
		return nil, fmt.Errorf("%w: invalid pipeline JSON: %v", ErrValidation, err)
	}
	return wrapper.Pipeline, nil
}

// ClampLimit parses the limit parameter: empty or zero falls back to the
// default, negatives are rejected, anything above the cap is clamped down.
func ClampLimit(raw string) (int64, error) {
	if strings.TrimSpace(raw) == "" {
		return DefaultLimit, nil
	}
	n, err := cast.ToInt64E(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: invalid limit %q: must be an integer", ErrValidation, raw)
	}
	switch {
	case n < 0:
		return 0, fmt.Errorf("%w: limit must not be negative, got %d", ErrValidation, n)
	case n == 0:
		return DefaultLimit, nil
	case n > MaxLimit:
		return MaxLimit, nil
	default:
		return n, nil
	}
}

// ParseFindParams validates and parses every find parameter without touching
// the network.
func ParseFindParams(database, collection, filter, projection, sort, limit string) (FindParams, error) {
	if err := RequireName("database", database); err != nil {
		return FindParams{}, err
	}
	if err := RequireName("collection", collection); err != nil {
		return FindParams{}, err
	}

	filterDoc, err := ParseFilter("query", filter)
	if err != nil {
		return FindParams{}, err
	}

	var projectionDoc bson.D
	if strings.TrimSpace(projection) != "" {
		projectionDoc, err = ParseFilter("projection", projection)
		if err != nil {
			return FindParams{}, err
		}
	}

	var sortDoc bson.D
	if strings.TrimSpace(sort) != "" {
		sortDoc, err = ParseFilter("sort", sort)
		if err != nil {
			return FindParams{}, err
		}
	}

	limitN, err := ClampLimit(limit)
	if err != nil {
		return FindParams{}, err
	}

	return FindParams{
		Database:      database,
		Collection:    collection,
		Filter:        filterDoc,
		Projection:    projectionDoc,
		Sort:          sortDoc,
		Limit:         limitN,
		RawFilter:     strings.TrimSpace(filter),
		RawProjection: strings.TrimSpace(projection),
		RawSort:       strings.TrimSpace(sort),
	}, nil
}

// ParseCountParams validates and parses every count parameter.
func ParseCountParams(database, collection, filter string) (CountParams, error) {
	if err := RequireName("database", database); err != nil {
		return CountParams{}, err
	}
	if err := RequireName("collection", collection); err != nil {
		return CountParams{}, err
	}
	filterDoc, err := ParseFilter("query", filter)
	if err != nil {
		return CountParams{}, err
	}
	return CountParams{
		Database:   database,
		Collection: collection,
		Filter:     filterDoc,
		RawFilter:  strings.TrimSpace(filter),
	}, nil
}

// ParseAggregateParams validates and parses every aggregation parameter.
func ParseAggregateParams(database, collection, pipeline string) (AggregateParams, error) {
	if err := RequireName("database", database); err != nil {
		return AggregateParams{}, err
	}
	if err := RequireName("collection", collection); err != nil {
		return AggregateParams{}, err
	}
	stages, err := ParsePipeline(pipeline)
	if err != nil {
		return AggregateParams{}, err
	}
	return AggregateParams{
		Database:    database,
		Collection:  collection,
		Pipeline:    stages,
		RawPipeline: strings.TrimSpace(pipeline),
	}, nil
}

// ListDatabases enumerates databases with a best-effort collection count per
// database. Databases the credentials cannot inspect are listed anyway.
func ListDatabases(ctx context.Context, client *mongo.Client) (string, error) {
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	var b strings.Builder
	b.WriteString("Available Databases:\n\n")
	for i, name := range names {
		collections, err := client.Database(name).ListCollectionNames(ctx, bson.D{})
		if err != nil {
			fmt.Fprintf(&b, "%d. %s (access restricted)\n", i+1, name)
			continue
		}
		fmt.Fprintf(&b, "%d. %s (%d collections)\n", i+1, name, len(collections))
	}
	return b.String(), nil
}

// ListCollections enumerates the collections of one database with
// best-effort estimated document counts.
func ListCollections(ctx context.Context, client *mongo.Client, database string) (string, error) {
	names, err := client.Database(database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}
	if len(names) == 0 {
		return fmt.Sprintf("No collections found in database '%s'", database), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Collections in '%s' database:\n\n", database)
	for i, name := range names {
		count, err := client.Database(database).Collection(name).EstimatedDocumentCount(ctx)
		if err != nil {
			fmt.Fprintf(&b, "%d. %s (count unavailable)\n", i+1, name)
			continue
		}
		fmt.Fprintf(&b, "%d. %s (~%s documents)\n", i+1, name, withCommas(count))
	}
	return b.String(), nil
}

// Count counts documents: a fast estimate when no filter was given, an exact
// count otherwise.
func Count(ctx context.Context, client *mongo.Client, p CountParams) (string, error) {
	coll := client.Database(p.Database).Collection(p.Collection)

	var (
		n   int64
		err error
	)
	if len(p.Filter) == 0 {
		n, err = coll.EstimatedDocumentCount(ctx)
	} else {
		n, err = coll.CountDocuments(ctx, p.Filter)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	queryDesc := p.RawFilter
	if queryDesc == "" || queryDesc == "{}" {
		queryDesc = "No filter (all documents)"
	}
	return fmt.Sprintf(`Document Count Results:

Database: %s
Collection: %s
Query: %s
Count: %s documents`, p.Database, p.Collection, queryDesc, withCommas(n)), nil
}

// Find runs the query and renders each document as indented JSON.
func Find(ctx context.Context, client *mongo.Client, p FindParams) (string, error) {
	coll := client.Database(p.Database).Collection(p.Collection)

	opts := options.Find().SetLimit(p.Limit)
	if p.Projection != nil {
		opts.SetProjection(p.Projection)
	}
	if p.Sort != nil {
		opts.SetSort(p.Sort)
	}

	cursor, err := coll.Find(ctx, p.Filter, opts)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer cursor.Close(ctx)

	var documents []bson.D
	for cursor.Next(ctx) {
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return "", fmt.Errorf("%w: decoding document failed: %v", ErrRemote, err)
		}
		documents = append(documents, doc)
	}
	if err := cursor.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	queryDesc := orDefault(p.RawFilter, "No filter")
	if p.RawFilter == "{}" {
		queryDesc = "No filter"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Query Results:

Database: %s
Collection: %s
Query: %s
Projection: %s
Sort: %s
Limit: %d
Found: %d documents

`, p.Database, p.Collection, queryDesc,
		orDefault(p.RawProjection, "All fields"),
		orDefault(p.RawSort, "Natural order"),
		p.Limit, len(documents))

	if len(documents) == 0 {
		b.WriteString("No documents found matching the query.")
		return b.String(), nil
	}

	b.WriteString("Documents:\n")
	for i, doc := range documents {
		fmt.Fprintf(&b, "\n--- Document %d ---\n%s\n", i+1, FormatDocument(doc))
	}
	return b.String(), nil
}

// Aggregate runs the pipeline, capping cursor iteration so an unbounded
// pipeline cannot flood the response.
func Aggregate(ctx context.Context, client *mongo.Client, p AggregateParams) (string, error) {
	coll := client.Database(p.Database).Collection(p.Collection)

	pipeline := make(mongo.Pipeline, len(p.Pipeline))
	for i, stage := range p.Pipeline {
		pipeline[i] = stage
	}

	cursor, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}
	defer cursor.Close(ctx)

	var results []bson.D
	for cursor.Next(ctx) {
		if len(results) >= MaxLimit {
			break
		}
		var doc bson.D
		if err := cursor.Decode(&doc); err != nil {
			return "", fmt.Errorf("%w: decoding result failed: %v", ErrRemote, err)
		}
		results = append(results, doc)
	}
	if err := cursor.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Aggregation Results:

Database: %s
Collection: %s
Pipeline: %s
Results: %d documents

`, p.Database, p.Collection, orDefault(p.RawPipeline, "[]"), len(results))

	if len(results) == 0 {
		b.WriteString("No results returned from aggregation.")
		return b.String(), nil
	}

	b.WriteString("Results:\n")
	for i, doc := range results {
		fmt.Fprintf(&b, "\n--- Result %d ---\n%s\n", i+1, FormatDocument(doc))
	}
	return b.String(), nil
}

// CollectionStats reports exact document count plus collStats figures,
// degrading the collStats block to zeros when the command is not available
// to the current credentials.
func CollectionStats(ctx context.Context, client *mongo.Client, database, collection string) (string, error) {
	coll := client.Database(database).Collection(collection)

	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRemote, err)
	}

	var stats struct {
		Size        int64   `bson:"size"`
		StorageSize int64   `bson:"storageSize"`
		AvgObjSize  float64 `bson:"avgObjSize"`
		NIndexes    int32   `bson:"nindexes"`
	}
	err = client.Database(database).
		RunCommand(ctx, bson.D{{Key: "collStats", Value: collection}}).
		Decode(&stats)
	if err != nil {
		stats.Size = 0
		stats.StorageSize = 0
		stats.AvgObjSize = 0
		stats.NIndexes = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Statistics for %s.%s:\n", database, collection)
	fmt.Fprintf(&b, "  - Document count: %s\n", withCommas(count))
	fmt.Fprintf(&b, "  - Data size: %s bytes (%.2f MB)\n", withCommas(stats.Size), float64(stats.Size)/1024/1024)
	fmt.Fprintf(&b, "  - Storage size: %s bytes (%.2f MB)\n", withCommas(stats.StorageSize), float64(stats.StorageSize)/1024/1024)
	fmt.Fprintf(&b, "  - Average document size: %.0f bytes\n", stats.AvgObjSize)
	fmt.Fprintf(&b, "  - Number of indexes: %d\n", stats.NIndexes)
	return b.String(), nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// withCommas renders an integer with thousands separators.
func withCommas(n int64) string {
	s := fmt.Sprintf("%d", n)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
