package usecase

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/snacksmith/backend/internal/domain"
)

func TestCanonicalizeEntries(t *testing.T) {
	t.Run("merges duplicates under catalog names", func(t *testing.T) {
		got, err := CanonicalizeEntries(fixtureCatalog(), []domain.IngredientEntry{
			{Name: "Almonds", AmountG: 30},
			{Name: "  dates ", AmountG: 20},
			{Name: "ALMONDS", AmountG: 5},
		})
		require.NoError(t, err)
		assert.Equal(t, []domain.IngredientEntry{
			{Name: "almonds", AmountG: 35},
			{Name: "dates", AmountG: 20},
		}, got)
	})

	t.Run("rejects unknown names", func(t *testing.T) {
		_, err := CanonicalizeEntries(fixtureCatalog(), []domain.IngredientEntry{{Name: "gravel", AmountG: 1}})
		assert.ErrorIs(t, err, domain.ErrUnknownIngredient)
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := CanonicalizeEntries(fixtureCatalog(), []domain.IngredientEntry{{Name: "almonds", AmountG: -1}})
		assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	})

	t.Run("rejects non-finite and oversized amounts", func(t *testing.T) {
		tests := []struct {
			name    string
			entries []domain.IngredientEntry
		}{
			{"NaN", []domain.IngredientEntry{{Name: "almonds", AmountG: math.NaN()}}},
			{"positive infinity", []domain.IngredientEntry{{Name: "almonds", AmountG: math.Inf(1)}}},
			{"1e308", []domain.IngredientEntry{{Name: "almonds", AmountG: 1e308}}},
			{"just over the cap", []domain.IngredientEntry{{Name: "almonds", AmountG: MaxAmountG + 0.5}}},
			{"merged total over the cap", []domain.IngredientEntry{
				{Name: "almonds", AmountG: MaxAmountG},
				{Name: "Almonds", AmountG: 1},
			}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := CanonicalizeEntries(fixtureCatalog(), tt.entries)
				assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			})
		}
	})

	t.Run("accepts the cap itself", func(t *testing.T) {
		got, err := CanonicalizeEntries(fixtureCatalog(), []domain.IngredientEntry{{Name: "almonds", AmountG: MaxAmountG}})
		require.NoError(t, err)
		assert.Equal(t, MaxAmountG, got[0].AmountG)
	})

	t.Run("empty input gives empty output", func(t *testing.T) {
		got, err := CanonicalizeEntries(fixtureCatalog(), nil)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestParseEntrySpec(t *testing.T) {
	tests := []struct {
		spec    string
		want    domain.IngredientEntry
		wantErr bool
	}{
		{spec: "almonds=30", want: domain.IngredientEntry{Name: "almonds", AmountG: 30}},
		{spec: "peanut butter:12.5g", want: domain.IngredientEntry{Name: "peanut butter", AmountG: 12.5}},
		{spec: " chia seeds = 10 ", want: domain.IngredientEntry{Name: "chia seeds", AmountG: 10}},
		{spec: "almonds", wantErr: true},
		{spec: "=30", wantErr: true},
		{spec: "almonds=", wantErr: true},
		{spec: "almonds=lots", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseEntrySpec(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEntrySpec_InvalidAmounts(t *testing.T) {
	for _, spec := range []string{"almonds=0", "almonds=-3", "almonds=NaN", "almonds=nan", "almonds=Inf", "almonds=+Inf", "almonds=1e308", "almonds=100001g"} {
		t.Run(spec, func(t *testing.T) {
			_, err := ParseEntrySpec(spec)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
		})
	}
}

func TestValidateServingSize(t *testing.T) {
	tests := []struct {
		name    string
		serving float64
		wantErr bool
	}{
		{"whole snack", 0, false},
		{"typical", 30, false},
		{"cap", MaxAmountG, false},
		{"negative", -1, true},
		{"NaN", math.NaN(), true},
		{"infinite", math.Inf(1), true},
		{"over the cap", 1e308, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateServingSize(tt.serving)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidRequest)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestParseEntrySpecs(t *testing.T) {
	got, err := ParseEntrySpecs("almonds=30, dates=20,,")
	require.NoError(t, err)
	assert.Equal(t, []domain.IngredientEntry{
		{Name: "almonds", AmountG: 30},
		{Name: "dates", AmountG: 20},
	}, got)

	_, err = ParseEntrySpecs("almonds=30,dates")
	assert.Error(t, err)

	_, err = ParseEntrySpecs("almonds=NaN,dates=20")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
