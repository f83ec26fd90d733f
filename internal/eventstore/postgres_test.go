package eventstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindWithEqualityFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT doc FROM documents WHERE collection = \$1 AND doc->>'user_id' = \$2 AND doc->>'email' = \$3 ORDER BY id`).
		WithArgs("clickfunnels", "42", "buyer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"email":"buyer@example.com","ad_id":"a1"}`)).
			AddRow([]byte(`{"email":"buyer@example.com","ad_id":"a2"}`)))

	store := NewPostgres(db)
	docs, err := store.Find(context.Background(), "clickfunnels",
		Eq("user_id", "42"), Eq("email", "buyer@example.com"))

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindWithArrayContains(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT doc FROM documents WHERE collection = \$1 AND doc->'ids' @> to_jsonb\(\$2::text\) ORDER BY id`).
		WithArgs("users", "buyer@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"ids":["buyer@example.com","1.2.3.4"]}`)))

	store := NewPostgres(db)
	docs, err := store.Find(context.Background(), "users", ArrayContains("ids", "buyer@example.com"))

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindGroupMatchesSubcollections(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT doc FROM documents WHERE \(collection = \$1 OR collection LIKE '%/' \|\| \$1\) AND doc->>'account_name' = \$2 ORDER BY id`).
		WithArgs("integrations", "keap").
		WillReturnRows(sqlmock.NewRows([]string{"doc"}).
			AddRow([]byte(`{"account_name":"keap","access_token":"tok"}`)))

	store := NewPostgres(db)
	docs, err := store.FindGroup(context.Background(), "integrations", Eq("account_name", "keap"))

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindRejectsUnsafeFieldNames(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewPostgres(db)
	_, err = store.Find(context.Background(), "events", Eq("ipv4'; DROP TABLE documents; --", "x"))
	assert.Error(t, err)
}

func TestDecodeSkipsMalformedDocuments(t *testing.T) {
	type row struct {
		AdID string `json:"ad_id"`
	}
	docs := []json.RawMessage{
		json.RawMessage(`{"ad_id":"a1"}`),
		json.RawMessage(`{not json`),
		json.RawMessage(`{"ad_id":"a2"}`),
	}

	out := Decode[row](docs)
	require.Len(t, out, 2)
	assert.Equal(t, "a1", out[0].AdID)
	assert.Equal(t, "a2", out[1].AdID)
}
