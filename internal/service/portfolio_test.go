// internal/service/portfolio_test.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"currency-conversion/internal/apperrors"
	"currency-conversion/internal/currency"
	"currency-conversion/internal/models"
)

func rawAmount(value string) json.RawMessage {
	return json.RawMessage(value)
}

func displayed(t *testing.T, view models.PortfolioView) decimal.Decimal {
	t.Helper()
	amount, err := decimal.NewFromString(strings.Trim(string(view.DisplayAmount), `"`))
	require.NoError(t, err)
	return amount
}

func newTestAdapter(workers int) *PortfolioAdapter {
	svc, _, _ := newTestService()
	return NewPortfolioAdapter(svc, currency.NewRegistry(), workers, zap.NewNop())
}

func TestApplyViewCurrencyIsolatesFailures(t *testing.T) {
	adapter := newTestAdapter(2)
	records := []models.PortfolioRecord{
		{ID: "a", Amount: rawAmount("100"), Currency: "USD"},
		{ID: "b", Amount: rawAmount("200"), Currency: "XYZ"},
		{ID: "c", Amount: rawAmount("50"), Currency: "EUR"},
	}

	views, err := adapter.ApplyViewCurrency(context.Background(), records, "NGN")
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, "a", views[0].ID)
	assert.False(t, views[0].ConversionFailed)
	assert.Equal(t, "NGN", views[0].DisplayCurrency)
	assert.True(t, decimal.RequireFromString("164000").Equal(displayed(t, views[0])))
	require.NotNil(t, views[0].ExchangeRate)

	assert.True(t, views[1].ConversionFailed)
	assert.Equal(t, "XYZ", views[1].DisplayCurrency)
	assert.True(t, decimal.NewFromInt(200).Equal(displayed(t, views[1])))
	assert.Nil(t, views[1].ExchangeRate)
	assert.Contains(t, views[1].Error, "XYZ")

	assert.False(t, views[2].ConversionFailed)
	assert.Equal(t, "NGN", views[2].DisplayCurrency)
}

func TestApplyViewCurrencyIsolatesBadAmounts(t *testing.T) {
	adapter := newTestAdapter(2)
	records := []models.PortfolioRecord{
		{ID: "a", Amount: rawAmount(`"abc"`), Currency: "USD"},
		{ID: "b", Amount: rawAmount("1e30000000"), Currency: "USD"},
		{ID: "c", Amount: rawAmount(`"25.5"`), Currency: "USD"},
		{ID: "d", Currency: "USD"},
	}

	views, err := adapter.ApplyViewCurrency(context.Background(), records, "EUR")
	require.NoError(t, err)
	require.Len(t, views, 4)

	assert.True(t, views[0].ConversionFailed)
	assert.Equal(t, `"abc"`, string(views[0].DisplayAmount))
	assert.Equal(t, "USD", views[0].DisplayCurrency)
	assert.Contains(t, views[0].Error, "not a number")

	assert.True(t, views[1].ConversionFailed)
	assert.Equal(t, "1e30000000", string(views[1].OriginalAmount))

	assert.False(t, views[2].ConversionFailed, views[2].Error)
	assert.Equal(t, "EUR", views[2].DisplayCurrency)
	assert.True(t, decimal.RequireFromString("21.68").Equal(displayed(t, views[2])))

	assert.True(t, views[3].ConversionFailed)
}

func TestApplyViewCurrencyRejectsInvalidView(t *testing.T) {
	adapter := newTestAdapter(2)

	_, err := adapter.ApplyViewCurrency(context.Background(), []models.PortfolioRecord{
		{ID: "a", Amount: rawAmount("1"), Currency: "USD"},
	}, "ZZZ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
}

func TestApplyViewCurrencyPreservesOrder(t *testing.T) {
	adapter := newTestAdapter(3)
	codes := []string{"USD", "EUR", "GBP", "NGN", "KES", "JPY", "ETB"}

	var records []models.PortfolioRecord
	for i := 0; i < 40; i++ {
		records = append(records, models.PortfolioRecord{
			ID:       fmt.Sprintf("rec-%d", i),
			Amount:   rawAmount(strconv.Itoa(i)),
			Currency: codes[i%len(codes)],
		})
	}

	views, err := adapter.ApplyViewCurrency(context.Background(), records, "usd")
	require.NoError(t, err)
	require.Len(t, views, len(records))

	for i, view := range views {
		assert.Equal(t, records[i].ID, view.ID)
		assert.Equal(t, records[i].Currency, view.OriginalCurrency)
		if records[i].Currency == "ETB" {
			assert.True(t, view.ConversionFailed, "ETB has no rate source")
		} else {
			assert.False(t, view.ConversionFailed, view.Error)
		}
	}
}

func TestApplyViewCurrencyEmpty(t *testing.T) {
	views, err := newTestAdapter(0).ApplyViewCurrency(context.Background(), nil, "USD")
	require.NoError(t, err)
	assert.Empty(t, views)
}
