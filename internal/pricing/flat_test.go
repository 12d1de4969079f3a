package pricing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gasplan/internal/demand"
)

func rcLoads(costs []float64) []TimepointLoad {
	cal := demand.Calibration{RefPrice: 5.0, RefQuantity: 80.0, Elasticity: -0.1}
	loads := make([]TimepointLoad, 0, len(costs))
	for _, c := range costs {
		loads = append(loads, TimepointLoad{Cal: cal, RecoverableCost: c, Weight: 52})
	}
	return loads
}

func TestFlatPriceIsRevenueNeutral(t *testing.T) {
	curve := demand.ConstantElasticity{}
	loads := rcLoads([]float64{4.0, 5.5, 7.0})

	p, err := FlatPrice(curve, loads, Options{})
	require.NoError(t, err)
	require.Greater(t, p, 0.0)

	revenue, cost := 0.0, 0.0
	for _, l := range loads {
		q, qerr := curve.Quantity(l.Cal, p)
		require.NoError(t, qerr)
		revenue += p * q * l.Weight
		cost += l.RecoverableCost * q * l.Weight
	}
	require.InEpsilon(t, cost, revenue, 1e-6)
}

func TestFlatPriceEqualsUniformCost(t *testing.T) {
	// When every timepoint carries the same recoverable cost, the flat
	// price is that cost.
	curve := demand.ConstantElasticity{}
	p, err := FlatPrice(curve, rcLoads([]float64{6.0, 6.0, 6.0}), Options{})
	require.NoError(t, err)
	require.InDelta(t, 6.0, p, 1e-6)
}

func TestFlatPriceFailsOnNonPositiveCost(t *testing.T) {
	curve := demand.ConstantElasticity{}
	_, err := FlatPrice(curve, rcLoads([]float64{0, 0, 0}), Options{})
	require.ErrorIs(t, err, ErrRevenueNeutralityNotFound)
}

func TestFlatPriceFailsWithoutTimepoints(t *testing.T) {
	curve := demand.ConstantElasticity{}
	_, err := FlatPrice(curve, nil, Options{})
	require.ErrorIs(t, err, ErrRevenueNeutralityNotFound)
}

func TestFlatPriceFailsWithoutReferenceDemand(t *testing.T) {
	curve := demand.ConstantElasticity{}
	loads := []TimepointLoad{{
		Cal:             demand.Calibration{RefPrice: 5, RefQuantity: 0, Elasticity: -0.1},
		RecoverableCost: 6,
		Weight:          52,
	}}
	_, err := FlatPrice(curve, loads, Options{})
	require.ErrorIs(t, err, ErrRevenueNeutralityNotFound)
}
