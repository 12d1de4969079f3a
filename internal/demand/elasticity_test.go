package demand

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func calib() Calibration {
	return Calibration{RefPrice: 3.0, RefQuantity: 100.0, Elasticity: -0.2}
}

func TestQuantityAtReferencePriceIsExact(t *testing.T) {
	curve := ConstantElasticity{}
	q, err := curve.Quantity(calib(), 3.0)
	require.NoError(t, err)
	require.Equal(t, 100.0, q)
}

func TestQuantityStrictlyDecreasingInPrice(t *testing.T) {
	curve := ConstantElasticity{}
	prices := []float64{0.5, 1, 2, 3, 5, 8, 20}
	prev := math.Inf(1)
	for _, p := range prices {
		q, err := curve.Quantity(calib(), p)
		require.NoError(t, err)
		require.Less(t, q, prev, "quantity must fall as price rises (p=%v)", p)
		prev = q
	}
}

func TestQuantityConcreteCase(t *testing.T) {
	// p0=3 $/MMBtu, q0=100 MMBtu, e=-0.2, offered price 4.0.
	curve := ConstantElasticity{}
	q, err := curve.Quantity(calib(), 4.0)
	require.NoError(t, err)
	require.InDelta(t, 100*math.Pow(4.0/3.0, -0.2), q, 1e-12)
	require.InDelta(t, 94.4, q, 0.05)
}

func TestInvalidCalibrationInputs(t *testing.T) {
	curve := ConstantElasticity{}

	cases := []struct {
		name  string
		cal   Calibration
		price float64
	}{
		{"zero reference price", Calibration{RefPrice: 0, RefQuantity: 100, Elasticity: -0.2}, 3},
		{"negative reference quantity", Calibration{RefPrice: 3, RefQuantity: -1, Elasticity: -0.2}, 3},
		{"non-negative elasticity", Calibration{RefPrice: 3, RefQuantity: 100, Elasticity: 0.2}, 3},
		{"zero price", calib(), 0},
		{"negative price", calib(), -4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := curve.Quantity(tc.cal, tc.price)
			require.ErrorIs(t, err, ErrInvalidCalibration)
			_, err = curve.Bid(tc.cal, tc.price, 8)
			require.ErrorIs(t, err, ErrInvalidCalibration)
		})
	}
}

func TestBidWTPZeroAtReferencePrice(t *testing.T) {
	curve := ConstantElasticity{}
	bid, err := curve.Bid(calib(), 3.0, 12)
	require.NoError(t, err)
	require.InDelta(t, 0.0, bid.WTP, 1e-9)
	require.Equal(t, 100.0, bid.Quantity)
}

func TestBidSegmentsFormDownwardSlopingStack(t *testing.T) {
	curve := ConstantElasticity{}
	bid, err := curve.Bid(calib(), 3.0, 12)
	require.NoError(t, err)
	require.NotEmpty(t, bid.Segments)

	// The must-serve block is the quantity demanded at the top of the grid.
	top := 100 * math.Pow(12.0/3.0, -0.2)
	require.InDelta(t, top, bid.Segments[0].Quantity, 1e-9)

	prev := math.Inf(1)
	total := 0.0
	for _, seg := range bid.Segments {
		require.Greater(t, seg.Quantity, 0.0)
		require.Less(t, seg.MarginalWTP, prev)
		prev = seg.MarginalWTP
		total += seg.Quantity
	}
	// The full stack reaches the quantity demanded at the bottom of the grid.
	bottom := 100 * math.Pow(0.75/3.0, -0.2)
	require.InDelta(t, bottom, total, 1e-9)
}

func TestNewSelectsKnownCurves(t *testing.T) {
	c, err := New("constant-elasticity")
	require.NoError(t, err)
	require.Equal(t, "constant-elasticity", c.Name())

	c, err = New("")
	require.NoError(t, err)
	require.NotNil(t, c)

	_, err = New("r-demand-system")
	require.Error(t, err)
}
