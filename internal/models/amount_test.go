package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAmountFromString(t *testing.T) {
	cases := []struct {
		raw  string
		want Amount
	}{
		{"10000", Amount(10000000)},
		{"10000.500", Amount(10000500)},
		{"0.001", Amount(1)},
		{"500.000", Amount(500000)},
		{"12.5", Amount(12500)},
		{"3.1459", Amount(3145)},
		{"-42.250", Amount(-42250)},
		{" 7 ", Amount(7000)},
	}
	for _, tc := range cases {
		got, err := AmountFromString(tc.raw)
		require.NoError(t, err, tc.raw)
		require.Equal(t, tc.want, got, tc.raw)
	}

	_, err := AmountFromString("")
	require.Error(t, err)
	_, err = AmountFromString("abc")
	require.Error(t, err)
}

func TestAmountString(t *testing.T) {
	require.Equal(t, "10000.000", Amount(10000000).String())
	require.Equal(t, "500.000", Amount(500000).String())
	require.Equal(t, "0.001", Amount(1).String())
	require.Equal(t, "-42.250", Amount(-42250).String())
}

func TestShipmentDerivedCharges(t *testing.T) {
	invoice, err := AmountFromString("10000")
	require.NoError(t, err)
	shipment := Shipment{InvoiceAmount: invoice}

	require.Equal(t, "500.000", shipment.CustomsDuty().String())
	require.Equal(t, "500.000", shipment.VAT().String())
	require.Equal(t, "100.000", shipment.Insurance().String())
}

func TestAmountPercentTruncates(t *testing.T) {
	// 1% of 0.100 is 0.001; 1% of 0.099 truncates to zero.
	require.Equal(t, Amount(1), Amount(100).Percent(1))
	require.Equal(t, Amount(0), Amount(99).Percent(1))
}

func TestAmountSQLRoundTrip(t *testing.T) {
	original := Amount(10000500)
	value, err := original.Value()
	require.NoError(t, err)
	require.Equal(t, "10000.500", value)

	var scanned Amount
	require.NoError(t, scanned.Scan([]byte("10000.500")))
	require.Equal(t, original, scanned)

	require.NoError(t, scanned.Scan("250.125"))
	require.Equal(t, Amount(250125), scanned)

	require.NoError(t, scanned.Scan(int64(42)))
	require.Equal(t, Amount(42000), scanned)

	require.NoError(t, scanned.Scan(nil))
	require.Equal(t, Amount(0), scanned)

	require.Error(t, scanned.Scan(true))
}

func TestAmountJSON(t *testing.T) {
	data, err := Amount(10000000).MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"10000.000"`, string(data))

	var parsed Amount
	require.NoError(t, parsed.UnmarshalJSON([]byte(`"10000.500"`)))
	require.Equal(t, Amount(10000500), parsed)

	require.NoError(t, parsed.UnmarshalJSON([]byte(`250`)))
	require.Equal(t, Amount(250000), parsed)
}

func TestShipmentDaysPostETA(t *testing.T) {
	shipment := Shipment{ETA: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)}

	require.Equal(t, 0, shipment.DaysPostETA(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))
	require.Equal(t, 5, shipment.DaysPostETA(time.Date(2026, 3, 15, 8, 0, 0, 0, time.UTC)))
	require.Equal(t, -3, shipment.DaysPostETA(time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC)))
}
