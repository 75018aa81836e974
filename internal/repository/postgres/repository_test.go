package postgres

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/Dhoini/pix-subscription-service/internal/domain"
	"github.com/Dhoini/pix-subscription-service/pkg/logger"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func quietLogger() *logger.Logger {
	return logger.NewWithWriter(logger.ERROR, io.Discard)
}

func TestEnsureSchema(t *testing.T) {
	mock := newMock(t)
	for range schema {
		mock.ExpectExec(".+").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	}

	require.NoError(t, EnsureSchema(context.Background(), mock, quietLogger()))
}

func TestSubscriberRepository_Activate(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subscribers")).
		WithArgs(int64(42), exp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Activate(context.Background(), 42, exp))
}

func TestSubscriberRepository_DeactivateError(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO subscribers")).
		WithArgs(int64(42)).
		WillReturnError(errors.New("connection reset"))

	err := repo.Deactivate(context.Background(), 42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSubscriberRepository_DeactivateExpired(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())
	asOf := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("AND expires_at < $2")).
		WithArgs(int64(42), asOf).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	expired, err := repo.DeactivateExpired(context.Background(), 42, asOf)
	require.NoError(t, err)
	assert.True(t, expired)
}

func TestSubscriberRepository_DeactivateExpiredSkipsRenewed(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())
	asOf := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE subscribers")).
		WithArgs(int64(42), asOf).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	expired, err := repo.DeactivateExpired(context.Background(), 42, asOf)
	require.NoError(t, err)
	assert.False(t, expired)
}

func TestSubscriberRepository_GetUnknownIsInactive(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscribers")).
		WithArgs(int64(7)).
		WillReturnError(pgx.ErrNoRows)

	sub, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, domain.InactiveSubscriber(7), sub)
}

func TestSubscriberRepository_Get(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())
	exp := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	updated := exp.Add(-30 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subscribers")).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"subscriber_id", "status", "expires_at", "updated_at"}).
			AddRow(int64(7), "active", &exp, updated))

	sub, err := repo.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.True(t, sub.IsActive())
	assert.True(t, exp.Equal(*sub.ExpiresAt))
}

func TestSubscriberRepository_ListActive(t *testing.T) {
	mock := newMock(t)
	repo := NewSubscriberRepository(mock, quietLogger())
	now := time.Now().UTC()
	a := now.Add(-time.Second)
	b := now.Add(time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'active'")).
		WillReturnRows(pgxmock.NewRows([]string{"subscriber_id", "status", "expires_at", "updated_at"}).
			AddRow(int64(1), "active", &a, now).
			AddRow(int64(2), "active", &b, now))

	subs, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.True(t, subs[0].ExpiredAt(now))
	assert.False(t, subs[1].ExpiredAt(now))
}

func TestChargeRepository_Record(t *testing.T) {
	mock := newMock(t)
	repo := NewChargeRepository(mock, quietLogger())
	tx := "tx_abc"
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO charges")).
		WithArgs(int64(10), &tx, domain.ChargeStatusPending, `{"id":"tx_abc"}`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), created))

	rec, err := repo.Record(context.Background(), domain.ChargeRecord{
		SubscriberID: 10,
		ExternalTxID: &tx,
		RawResponse:  `{"id":"tx_abc"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), rec.ID)
	assert.Equal(t, domain.ChargeStatusPending, rec.Status)
	assert.Equal(t, created, rec.CreatedAt)
}

func TestChargeRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewChargeRepository(mock, quietLogger())

	mock.ExpectExec(regexp.QuoteMeta("UPDATE charges SET status")).
		WithArgs("tx_abc", "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE charges SET status")).
		WithArgs("tx_missing", "paid").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := repo.UpdateStatus(context.Background(), "tx_abc", "paid")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UpdateStatus(context.Background(), "tx_missing", "paid")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateStatus(context.Background(), "", "paid")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChargeRepository_FindSubscriberByExternalTxID(t *testing.T) {
	mock := newMock(t)
	repo := NewChargeRepository(mock, quietLogger())

	mock.ExpectQuery(regexp.QuoteMeta("SELECT subscriber_id FROM charges")).
		WithArgs("tx_abc").
		WillReturnRows(pgxmock.NewRows([]string{"subscriber_id"}).AddRow(int64(555)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT subscriber_id FROM charges")).
		WithArgs("tx_missing").
		WillReturnError(pgx.ErrNoRows)

	id, found, err := repo.FindSubscriberByExternalTxID(context.Background(), "tx_abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(555), id)

	_, found, err = repo.FindSubscriberByExternalTxID(context.Background(), "tx_missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestChargeRepository_ListBySubscriberDefaultsLimit(t *testing.T) {
	mock := newMock(t)
	repo := NewChargeRepository(mock, quietLogger())
	tx := "tx_1"
	created := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM charges")).
		WithArgs(int64(10), defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "subscriber_id", "external_tx_id", "status", "created_at", "raw_response"}).
			AddRow(int64(2), int64(10), &tx, "paid", created, "{}"))

	recs, err := repo.ListBySubscriber(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "tx_1", *recs[0].ExternalTxID)
	assert.Equal(t, "paid", recs[0].Status)
}
