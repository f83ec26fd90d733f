// Package eventstore provides the queryable document log the attribution
// engine reads its visit/click evidence from. Documents are schemaless JSON
// keyed by collection name; callers unmarshal into their own types.
package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
)

// Op is a supported query operator.
type Op string

const (
	// OpEqual matches documents whose field equals the value.
	OpEqual Op = "=="
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains Op = "array-contains"
)

// Filter is a single field predicate. Filters on the same query are ANDed.
type Filter struct {
	Field string
	Op    Op
	Value string
}

// Eq builds an equality filter.
func Eq(field, value string) Filter { return Filter{Field: field, Op: OpEqual, Value: value} }

// ArrayContains builds an array-membership filter.
func ArrayContains(field, value string) Filter {
	return Filter{Field: field, Op: OpArrayContains, Value: value}
}

// Store is the document query contract. Implementations must be safe for
// concurrent use.
type Store interface {
	// Find returns all documents of a collection matching every filter.
	// An empty result is not an error.
	Find(ctx context.Context, collection string, filters ...Filter) ([]json.RawMessage, error)

	// FindGroup queries across all subcollections sharing the given name
	// regardless of their parent path (credential/integration lookups span
	// tenants this way).
	FindGroup(ctx context.Context, group string, filters ...Filter) ([]json.RawMessage, error)
}

// Decode unmarshals raw documents into typed values, skipping documents that
// fail to decode. Store payloads are operator-written JSON; one malformed
// document must not poison a whole evidence tier.
func Decode[T any](docs []json.RawMessage) []T {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// FindAs runs Find and decodes the result into typed values.
func FindAs[T any](ctx context.Context, s Store, collection string, filters ...Filter) ([]T, error) {
	docs, err := s.Find(ctx, collection, filters...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	return Decode[T](docs), nil
}
