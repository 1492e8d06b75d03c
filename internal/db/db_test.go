package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// --- Mock DBTX ---

type mockDBTX struct {
	mock.Mock
}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDBTX) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if r := args.Get(0); r != nil {
		return r.(pgx.Rows), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// --- Mock Row ---

type mockRow struct {
	scanErr error
	scanFn  func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error {
	if r.scanFn != nil {
		return r.scanFn(dest...)
	}
	return r.scanErr
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

// --- helpers ---

func TestUniqueViolation(t *testing.T) {
	name, ok := uniqueViolation(uniqueErr("waitlist_email_key"))
	assert.True(t, ok)
	assert.Equal(t, "waitlist_email_key", name)

	_, ok = uniqueViolation(&pgconn.PgError{Code: "23503"})
	assert.False(t, ok, "foreign key violation is not a unique violation")

	_, ok = uniqueViolation(errors.New("connection reset"))
	assert.False(t, ok)
}

func TestNilIfEmpty(t *testing.T) {
	assert.Nil(t, nilIfEmpty(""))
	if v := nilIfEmpty("pay_1"); assert.NotNil(t, v) {
		assert.Equal(t, "pay_1", *v)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthProbe(t *testing.T) {
	ok := NewHealthProbe(stubPinger{})
	assert.Equal(t, "database", ok.Name())
	assert.NoError(t, ok.Check(context.Background()))

	down := NewHealthProbe(stubPinger{err: errors.New("dial tcp: refused")})
	assert.Error(t, down.Check(context.Background()))
}
