package partdime

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type sessionRecord struct {
	bun.BaseModel `bun:"table:session_records,alias:sr"`
	Key           string `bun:"key,pk"`
	Value         []byte `bun:"value,notnull"`
}

// BunSessionRecords stores the persisted session record in a bun-managed
// SQLite database, the device-local durable storage of the client.
type BunSessionRecords struct {
	db *bun.DB
}

var _ SessionRecords = (*BunSessionRecords)(nil)

// NewBunSessionRecords wraps an existing bun handle.
func NewBunSessionRecords(db *bun.DB) *BunSessionRecords {
	return &BunSessionRecords{db: db}
}

// OpenSessionRecords opens (or creates) the SQLite database at path and
// ensures the record table exists. Use ":memory:" for an ephemeral store.
func OpenSessionRecords(ctx context.Context, path string) (*BunSessionRecords, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, err
	}

	records := NewBunSessionRecords(bun.NewDB(sqldb, sqlitedialect.New()))
	if err := records.Init(ctx); err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return records, nil
}

// Init creates the backing table if it does not exist.
func (r *BunSessionRecords) Init(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*sessionRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

// Get returns the value stored under key, reporting found=false when the
// key has never been written.
func (r *BunSessionRecords) Get(ctx context.Context, key string) ([]byte, bool, error) {
	record := &sessionRecord{}
	err := r.db.NewSelect().
		Model(record).
		Where("sr.key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record.Value, true, nil
}

// Set writes value under key, replacing any previous value.
func (r *BunSessionRecords) Set(ctx context.Context, key string, value []byte) error {
	record := &sessionRecord{Key: key, Value: value}
	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Exec(ctx)
	return err
}

// Delete removes the given keys. Missing keys are not an error.
func (r *BunSessionRecords) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*sessionRecord)(nil)).
		Where("sr.key IN (?)", bun.In(keys)).
		Exec(ctx)
	return err
}

// Close releases the underlying database handle.
func (r *BunSessionRecords) Close() error {
	return r.db.Close()
}
