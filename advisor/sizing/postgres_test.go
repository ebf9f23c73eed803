package sizing

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biwstack/biw-advisor/advisor"
)

type fakeRow struct {
	value int64
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.value
	return nil
}

type fakeQuerier struct {
	row   fakeRow
	sql   string
	args  []any
	calls int
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	q.sql, q.args = sql, args
	return q.row
}

func TestPGStore_TableSizeBytes(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{value: 81920}}

	size, err := NewPGStoreWithQuerier(q).TableSizeBytes(context.Background(), "higgs")

	require.NoError(t, err)
	assert.Equal(t, uint64(81920), size)
	assert.Equal(t, []any{`"higgs"`}, q.args)
}

func TestPGStore_PageRowCountScansOnePage(t *testing.T) {
	// GIVEN a schema-qualified table
	q := &fakeQuerier{row: fakeRow{value: 61}}

	// WHEN page 7 is counted
	n, err := NewPGStoreWithQuerier(q).PageRowCount(context.Background(), "public.forest", 7)

	// THEN the ctid range covers exactly that page and the name is quoted
	require.NoError(t, err)
	assert.Equal(t, uint32(61), n)
	assert.Contains(t, q.sql, `"public"."forest"`)
	assert.Equal(t, []any{"(7,0)", "(8,0)"}, q.args)
}

func TestPGStore_MixedCaseNameResolvesAlikeInEveryQuery(t *testing.T) {
	// GIVEN a schema-qualified mixed-case table name
	const table = "Analytics.HiggsData"
	const quoted = `"Analytics"."HiggsData"`
	q := &fakeQuerier{row: fakeRow{value: 8192}}
	store := NewPGStoreWithQuerier(q)
	ctx := context.Background()

	// WHEN each storage query runs
	// THEN every one names the same case-preserved relation
	_, err := store.TableSizeBytes(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []any{quoted}, q.args, "size")

	_, err = store.PageCount(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []any{quoted}, q.args, "page count")

	_, err = store.PageRowCount(ctx, table, 0)
	require.NoError(t, err)
	assert.Contains(t, q.sql, "FROM "+quoted+" ", "page rows")
}

func TestPGStore_UndefinedTableMapsToNotFound(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{err: &pgconn.PgError{Code: "42P01", Message: `relation "nope" does not exist`}}}
	store := NewPGStoreWithQuerier(q)

	_, err := store.PageCount(context.Background(), "nope")

	assert.True(t, errors.Is(err, advisor.ErrTableNotFound))
}

func TestPGStore_OtherErrorsPassThrough(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{row: fakeRow{err: boom}}

	_, err := NewPGStoreWithQuerier(q).TableSizeBytes(context.Background(), "t")

	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, advisor.ErrTableNotFound))
}

func TestPGStore_SizerEndToEnd(t *testing.T) {
	// one fake answers every query, so size = 3 pages and each page holds 3×8192 "rows"
	q := &fakeQuerier{row: fakeRow{value: 3 * 8192}}

	w, err := NewSizer(NewPGStoreWithQuerier(q), 8192).Size(context.Background(), "t")

	require.NoError(t, err)
	assert.Equal(t, float64(3), w.Pages)
	assert.Equal(t, float64(3*3*8192), w.Rows)
	assert.Equal(t, 3, q.calls)
}
