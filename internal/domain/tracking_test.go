package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrderReference(t *testing.T) {
	ref, err := ParseOrderReference(" 450789469 ")
	require.NoError(t, err)
	assert.True(t, ref.Numeric)
	id, err := ref.NumericID()
	require.NoError(t, err)
	assert.Equal(t, uint64(450789469), id)

	ref, err = ParseOrderReference("#1002")
	require.NoError(t, err)
	assert.False(t, ref.Numeric)
	assert.Equal(t, "1002", ref.Bare)
	n, ok := ref.BareNumber()
	assert.True(t, ok)
	assert.Equal(t, 1002, n)

	ref, err = ParseOrderReference("#SO-77")
	require.NoError(t, err)
	assert.Equal(t, "SO-77", ref.Bare)
	_, ok = ref.BareNumber()
	assert.False(t, ok)
	_, err = ref.NumericID()
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParseOrderReference("   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	ref, err = ParseOrderReference("99999999999999999999999")
	require.NoError(t, err)
	_, err = ref.NumericID()
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestFulfillmentFallbacks(t *testing.T) {
	f := Fulfillment{TrackingNumbers: []string{"", "1Z"}, TrackingURLs: []string{"https://t.example/1Z"}}
	assert.Equal(t, "1Z", f.EffectiveTrackingNumber())
	assert.Equal(t, "https://t.example/1Z", f.EffectiveTrackingURL())

	f.TrackingNumber = "PRIMARY"
	assert.Equal(t, "PRIMARY", f.EffectiveTrackingNumber())

	assert.True(t, TrackingRecord{}.IsEmpty())
	assert.False(t, TrackingRecord{TrackingCompany: "UPS"}.IsEmpty())
}
