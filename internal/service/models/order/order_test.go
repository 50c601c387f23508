package order

import (
	"testing"
	"time"

	"github.com/corray333/backend-labs/orderdesk/internal/service/models/lineitem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTransportCost(t *testing.T) {
	tests := map[string]int64{
		"1.5":    1,
		"  42 ":  42,
		"-2.9":   -2,
		"0.99":   0,
		"":       0,
		"abc":    0,
		"1,5":    0,
		"120.00": 120,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseTransportCost(in), "input %q", in)
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("")
	require.NoError(t, err)
	assert.Equal(t, StatusNew, s)

	s, err = ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, s)

	_, err = ParseStatus("lost")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestFields_NormalizesDates(t *testing.T) {
	local := time.Date(2024, time.March, 1, 1, 0, 0, 999, time.FixedZone("CET", 3600))
	o := Order{
		ID:           3,
		ProformaDate: &local,
		CreatedAt:    local,
		LineItems:    []lineitem.LineItem{{ID: "a"}},
	}

	f := o.Fields()

	require.NotNil(t, f.ProformaDate)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), *f.ProformaDate)
	assert.Nil(t, f.PaymentDate)
	assert.Nil(t, f.LineItems)
	assert.True(t, f.CreatedAt.IsZero())
	assert.Equal(t, 999, o.ProformaDate.Nanosecond())
}
