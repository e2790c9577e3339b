package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sunkwolf/sistema-proteg-sub000/pkg/models"
)

func record(amount string, cashBasis bool) *models.CollectionRecord {
	return &models.CollectionRecord{
		Amount:      dec(amount),
		CashBasis:   cashBasis,
		CollectedAt: time.Now().UTC(),
	}
}

func TestCalculateCommission(t *testing.T) {
	records := []*models.CollectionRecord{
		record("5200", false),
		record("4500", false),
		record("3500", false),
		record("8500", true),
	}

	b := CalculateCommission(records, 5, DefaultRates())

	assert.True(t, b.RegularBase.Equal(dec("13200")), "regular base: %s", b.RegularBase)
	assert.True(t, b.CashBase.Equal(dec("8500")), "cash base: %s", b.CashBase)
	assert.Equal(t, 5, b.DeliveryCount)

	assert.True(t, b.Regular.Equal(dec("1320")), "regular: %s", b.Regular)
	assert.True(t, b.CashBasis.Equal(dec("425")), "cash: %s", b.CashBasis)
	assert.True(t, b.Delivery.Equal(dec("250")), "delivery: %s", b.Delivery)
	assert.True(t, b.Total.Equal(dec("1995")), "total: %s", b.Total)
}

func TestCalculateCommissionRoundsHalfUp(t *testing.T) {
	// 10% of 100.25 = 10.025, half-up to 10.03
	// 5% of 10.30 = 0.515, half-up to 0.52
	records := []*models.CollectionRecord{
		record("100.25", false),
		record("10.30", true),
	}

	b := CalculateCommission(records, 0, DefaultRates())

	assert.True(t, b.Regular.Equal(dec("10.03")), "regular: %s", b.Regular)
	assert.True(t, b.CashBasis.Equal(dec("0.52")), "cash: %s", b.CashBasis)
	assert.True(t, b.Total.Equal(dec("10.55")), "total: %s", b.Total)
}

func TestCalculateCommissionEmpty(t *testing.T) {
	b := CalculateCommission(nil, 0, DefaultRates())

	assert.True(t, b.Regular.IsZero())
	assert.True(t, b.CashBasis.IsZero())
	assert.True(t, b.Delivery.IsZero())
	assert.True(t, b.Total.IsZero())
}

func TestCalculateCommissionDeterministic(t *testing.T) {
	records := []*models.CollectionRecord{
		record("1234.56", false),
		record("789.01", true),
	}

	first := CalculateCommission(records, 3, DefaultRates())
	second := CalculateCommission(records, 3, DefaultRates())

	assert.True(t, first.Total.Equal(second.Total))
	assert.Equal(t, first, second)
}
