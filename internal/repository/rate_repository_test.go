// internal/repository/rate_repository_test.go
package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestRateRepositoryPutUpsertsBothDirections(t *testing.T) {
	asserts := require.New(t)
	db, mock, err := sqlmock.New()
	asserts.NoError(err)
	defer db.Close()

	rate := testRate("USD", "NGN", "1640")
	upsert := regexp.QuoteMeta("INSERT INTO exchange_rates (base_currency, quote_currency, rate, source, derived_from, updated_at)")

	mock.ExpectBegin()
	mock.ExpectExec(upsert).
		WithArgs("USD", "NGN", "1640", "live", "", rate.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsert).
		WithArgs("NGN", "USD", sqlmock.AnyArg(), "computed", "live", rate.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewRateRepository(db)
	asserts.NoError(repo.Put(context.Background(), rate))
	asserts.NoError(mock.ExpectationsWereMet())
}

func TestRateRepositoryPutRollsBackOnFailure(t *testing.T) {
	asserts := require.New(t)
	db, mock, err := sqlmock.New()
	asserts.NoError(err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO exchange_rates").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO exchange_rates").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	repo := NewRateRepository(db)
	err = repo.Put(context.Background(), testRate("USD", "NGN", "1640"))
	asserts.Error(err)
	asserts.Contains(err.Error(), "NGN/USD")
	asserts.NoError(mock.ExpectationsWereMet())
}

func TestRateRepositoryGet(t *testing.T) {
	asserts := require.New(t)
	db, mock, err := sqlmock.New()
	asserts.NoError(err)
	defer db.Close()

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"base_currency", "quote_currency", "rate", "source", "derived_from", "updated_at"}).
		AddRow("EUR", "USD", "1.1764705882352941", "computed", "static", updated)
	mock.ExpectQuery("SELECT base_currency, quote_currency, rate, source, derived_from, updated_at").
		WithArgs("EUR", "USD").
		WillReturnRows(rows)

	repo := NewRateRepository(db)
	rate, err := repo.Get(context.Background(), "EUR", "USD")
	asserts.NoError(err)
	asserts.Equal("1.1764705882352941", rate.Rate.String())
	asserts.EqualValues("computed", rate.Source)
	asserts.EqualValues("static", rate.DerivedFrom)
	asserts.True(rate.FromStaticTable())
	asserts.True(updated.Equal(rate.UpdatedAt))
	asserts.NoError(mock.ExpectationsWereMet())
}

func TestRateRepositoryGetNotFound(t *testing.T) {
	asserts := require.New(t)
	db, mock, err := sqlmock.New()
	asserts.NoError(err)
	defer db.Close()

	mock.ExpectQuery("SELECT base_currency").
		WithArgs("USD", "ETB").
		WillReturnRows(sqlmock.NewRows([]string{"base_currency", "quote_currency", "rate", "source", "derived_from", "updated_at"}))

	repo := NewRateRepository(db)
	_, err = repo.Get(context.Background(), "USD", "ETB")
	asserts.ErrorIs(err, ErrRateNotFound)
}

func TestRateRepositoryListByBase(t *testing.T) {
	asserts := require.New(t)
	db, mock, err := sqlmock.New()
	asserts.NoError(err)
	defer db.Close()

	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT base_currency, quote_currency, rate, source, derived_from, updated_at").
		WithArgs("USD").
		WillReturnRows(sqlmock.NewRows([]string{"base_currency", "quote_currency", "rate", "source", "derived_from", "updated_at"}).
			AddRow("USD", "EUR", "0.85", "live", "", updated).
			AddRow("USD", "NGN", "1640", "static", "", updated))

	repo := NewRateRepository(db)
	rates, err := repo.ListByBase(context.Background(), "USD")
	asserts.NoError(err)
	asserts.Len(rates, 2)
	asserts.EqualValues("NGN", rates[1].Quote)
}
