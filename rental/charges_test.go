package rental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func snap(base, rate, deposit int64, rtype RentalType) PricingSnapshot {
	return PricingSnapshot{
		BasePrice:  base,
		Rate:       rate,
		Deposit:    deposit,
		Currency:   "VND",
		RentalType: rtype,
	}
}

func TestCalculateCharges_OnTimeNoFees(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	ch, err := CalculateCharges(snap(200000, 50000, 500000, TypeHourly), end, end.Add(-10*time.Minute), nil)
	require.NoError(t, err)

	assert.Equal(t, int64(200000), ch.RentalFee)
	assert.Equal(t, int64(0), ch.LateFee)
	assert.Equal(t, int64(200000), ch.Total)
}

func TestCalculateCharges_LateFeeHourly(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	s := snap(200000, 50000, 500000, TypeHourly)

	// 90 minutes late bills two started hours.
	ch, err := CalculateCharges(s, end, end.Add(90*time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), ch.LateFee)

	// Exactly one hour late bills one.
	ch, err = CalculateCharges(s, end, end.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), ch.LateFee)
}

func TestCalculateCharges_LateFeeDaily(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	s := snap(800000, 400000, 1000000, TypeDaily)

	ch, err := CalculateCharges(s, end, end.Add(24*time.Hour+time.Minute), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(800000), ch.LateFee)
}

func TestCalculateCharges_FeeLines(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	s := snap(200000, 50000, 500000, TypeHourly)

	ch, err := CalculateCharges(s, end, end, []FeeLine{
		{Kind: FeeDamage, Amount: 400000, Reason: "scratched fairing"},
		{Kind: FeeCleaning, Amount: 30000, Reason: "mud on seat"},
		{Kind: FeeOther, Amount: 10000, Reason: "missing charger cable"},
		{Kind: FeeKind("toll"), Amount: 5000, Reason: "unpaid toll"},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(400000), ch.DamageFee)
	assert.Equal(t, int64(30000), ch.CleaningFee)
	assert.Equal(t, int64(10000), ch.OtherFees)
	assert.Equal(t, int64(5000), ch.ExtraFees)
	assert.Equal(t, int64(645000), ch.Total)
}

func TestCalculateCharges_NonZeroFeeNeedsReason(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	_, err := CalculateCharges(snap(200000, 50000, 500000, TypeHourly), end, end, []FeeLine{
		{Kind: FeeDamage, Amount: 100000, Reason: "  "},
	})
	assert.ErrorIs(t, err, ErrFeeNeedsReason)

	// Zero-amount lines need no justification.
	_, err = CalculateCharges(snap(200000, 50000, 500000, TypeHourly), end, end, []FeeLine{
		{Kind: FeeDamage, Amount: 0},
	})
	assert.NoError(t, err)
}

func TestCalculateCharges_NegativeFeeRejected(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

	_, err := CalculateCharges(snap(200000, 50000, 500000, TypeHourly), end, end, []FeeLine{
		{Kind: FeeOther, Amount: -1, Reason: "refund attempt"},
	})
	assert.ErrorIs(t, err, ErrNegativeFee)
}

func TestCalculateCharges_TotalIsSumOfParts(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := snap(
			rapid.Int64Range(0, 10_000_000).Draw(t, "base"),
			rapid.Int64Range(0, 1_000_000).Draw(t, "rate"),
			rapid.Int64Range(0, 10_000_000).Draw(t, "deposit"),
			rapid.SampledFrom([]RentalType{TypeHourly, TypeDaily}).Draw(t, "type"),
		)
		end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
		returned := end.Add(time.Duration(rapid.Int64Range(-48, 96).Draw(t, "hours")) * time.Hour)

		kinds := []FeeKind{FeeDamage, FeeCleaning, FeeOther, FeeKind("misc")}
		n := rapid.IntRange(0, 6).Draw(t, "lines")
		lines := make([]FeeLine, 0, n)
		for i := 0; i < n; i++ {
			lines = append(lines, FeeLine{
				Kind:   rapid.SampledFrom(kinds).Draw(t, "kind"),
				Amount: rapid.Int64Range(1, 1_000_000).Draw(t, "amount"),
				Reason: "staff annotation",
			})
		}

		ch, err := CalculateCharges(s, end, returned, lines)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		sum := ch.RentalFee + ch.LateFee + ch.DamageFee + ch.CleaningFee + ch.OtherFees + ch.ExtraFees
		if ch.Total != sum {
			t.Fatalf("total %d != sum of parts %d", ch.Total, sum)
		}
		if returned.Before(end) && ch.LateFee != 0 {
			t.Fatalf("late fee %d charged for an on-time return", ch.LateFee)
		}
	})
}
