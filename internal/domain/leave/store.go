package leave

import (
	"encoding/json"

	"github.com/google/uuid"

	"hrleave/internal/platform/querier"
)

// PgStore is the Postgres implementation of Store.
type PgStore struct {
	DB querier.Querier
}

var _ Store = (*PgStore)(nil)

func NewStore(db querier.Querier) *PgStore {
	return &PgStore{DB: db}
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func marshalJSON(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func unmarshalJSON(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func newID() string {
	return uuid.NewString()
}
