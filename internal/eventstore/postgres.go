package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Postgres implements Store over a single JSONB documents table:
//
//	CREATE TABLE documents (
//	    id         BIGSERIAL PRIMARY KEY,
//	    collection TEXT  NOT NULL,
//	    doc        JSONB NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
//	CREATE INDEX documents_collection_idx ON documents (collection);
//	CREATE INDEX documents_doc_idx ON documents USING gin (doc);
//
// Collection names are path-style ("clickfunnels", "events",
// "tenants/<id>/integrations"); FindGroup matches the trailing path segment.
type Postgres struct {
	db *sql.DB
}

// NewPostgres creates a Postgres-backed document store.
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var fieldNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// Find returns all documents of a collection matching every filter.
func (p *Postgres) Find(ctx context.Context, collection string, filters ...Filter) ([]json.RawMessage, error) {
	where := []string{"collection = $1"}
	args := []interface{}{collection}
	if err := appendFilters(&where, &args, filters); err != nil {
		return nil, err
	}
	return p.query(ctx, where, args)
}

// FindGroup queries across all subcollections with the given trailing name.
func (p *Postgres) FindGroup(ctx context.Context, group string, filters ...Filter) ([]json.RawMessage, error) {
	where := []string{"(collection = $1 OR collection LIKE '%/' || $1)"}
	args := []interface{}{group}
	if err := appendFilters(&where, &args, filters); err != nil {
		return nil, err
	}
	return p.query(ctx, where, args)
}

func appendFilters(where *[]string, args *[]interface{}, filters []Filter) error {
	for _, f := range filters {
		// Field names are interpolated into the statement; restrict them
		// to identifier characters.
		if !fieldNameRe.MatchString(f.Field) {
			return fmt.Errorf("eventstore: invalid field name %q", f.Field)
		}
		n := len(*args) + 1
		switch f.Op {
		case OpEqual:
			*where = append(*where, fmt.Sprintf("doc->>'%s' = $%d", f.Field, n))
		case OpArrayContains:
			*where = append(*where, fmt.Sprintf("doc->'%s' @> to_jsonb($%d::text)", f.Field, n))
		default:
			return fmt.Errorf("eventstore: unsupported operator %q", f.Op)
		}
		*args = append(*args, f.Value)
	}
	return nil
}

func (p *Postgres) query(ctx context.Context, where []string, args []interface{}) ([]json.RawMessage, error) {
	stmt := "SELECT doc FROM documents WHERE " + strings.Join(where, " AND ") + " ORDER BY id"
	rows, err := p.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("eventstore: query: %w", err)
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("eventstore: scan: %w", err)
		}
		docs = append(docs, json.RawMessage(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("eventstore: rows: %w", err)
	}
	return docs, nil
}
