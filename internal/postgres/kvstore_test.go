package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDB emulates kv_store with a map keyed by namespace/key.
type fakeDB struct {
	rows    map[string]string
	err     error
	lastSQL string
}

type fakeRow struct {
	v   string
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.v
	return nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL = sql
	if f.err != nil {
		return fakeRow{err: f.err}
	}
	v, ok := f.rows[args[0].(string)+"/"+args[1].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{v: v}
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL = sql
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	k := args[0].(string) + "/" + args[1].(string)
	switch {
	case strings.Contains(sql, "INSERT"):
		f.rows[k] = args[2].(string)
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	case strings.Contains(sql, "DELETE"):
		delete(f.rows, k)
		return pgconn.NewCommandTag("DELETE 1"), nil
	}
	return pgconn.CommandTag{}, errors.New("unexpected sql")
}

func TestKVStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := &fakeDB{rows: map[string]string{}}
	st := NewKVStore(db, "")

	_, ok, err := st.Get(ctx, "userThemes")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.Set(ctx, "userThemes", `{"u1":"ocean"}`))
	assert.Contains(t, db.lastSQL, "ON CONFLICT")
	assert.Equal(t, `{"u1":"ocean"}`, db.rows["default/userThemes"])

	v, ok, err := st.Get(ctx, "userThemes")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"u1":"ocean"}`, v)

	require.NoError(t, st.Remove(ctx, "userThemes"))
	_, ok, err = st.Get(ctx, "userThemes")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStore_Errors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("conn reset")
	st := NewKVStore(&fakeDB{rows: map[string]string{}, err: boom}, "ns")

	_, _, err := st.Get(ctx, "k")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, st.Set(ctx, "k", "v"), boom)
	assert.ErrorIs(t, st.Remove(ctx, "k"), boom)
}
