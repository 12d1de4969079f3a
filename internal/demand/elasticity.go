package demand

import (
	"fmt"
	"math"
)

// ConstantElasticity implements q(p) = q0 * (p/p0)^e with e < 0.
// Willingness to pay is measured relative to the calibration point as the
// change in consumer surplus plus the change in expenditure, so a bid at the
// reference price has WTP exactly zero.
type ConstantElasticity struct{}

func (ConstantElasticity) Name() string { return "constant-elasticity" }

func (ConstantElasticity) Quantity(cal Calibration, price float64) (float64, error) {
	if err := cal.Validate(); err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: price %v must be > 0", ErrInvalidCalibration, price)
	}
	return cal.RefQuantity * math.Pow(price/cal.RefPrice, cal.Elasticity), nil
}

func (c ConstantElasticity) Bid(cal Calibration, price float64, segments int) (Bid, error) {
	q, err := c.Quantity(cal, price)
	if err != nil {
		return Bid{}, err
	}
	if segments < 2 {
		segments = 2
	}

	// Surplus change: integral of inverse demand from the reference point,
	// plus the expenditure difference. Elasticity is strictly negative and
	// never -1 in calibrated gas data, so 1+e stays away from zero.
	e := cal.Elasticity
	csDiff := (1 - math.Pow(price/cal.RefPrice, 1+e)) * cal.RefPrice * cal.RefQuantity / (1 + e)
	paidDiff := price*q - cal.RefPrice*cal.RefQuantity

	bid := Bid{
		Price:    price,
		Quantity: q,
		WTP:      csDiff + paidDiff,
	}

	// Piecewise-linear approximation of the inverse demand curve on a
	// geometric price grid spanning [price/4, 4*price]. The top block is the
	// must-serve floor; each later block adds the quantity released by the
	// next price step at that step's geometric-mid value.
	pHi := 4 * price
	pLo := price / 4
	ratio := math.Pow(pLo/pHi, 1/float64(segments))

	prevP := pHi
	prevQ := cal.RefQuantity * math.Pow(pHi/cal.RefPrice, e)
	bid.Segments = append(bid.Segments, Segment{Quantity: prevQ, MarginalWTP: pHi})
	for i := 0; i < segments; i++ {
		nextP := prevP * ratio
		nextQ := cal.RefQuantity * math.Pow(nextP/cal.RefPrice, e)
		dq := nextQ - prevQ
		if dq > 0 {
			bid.Segments = append(bid.Segments, Segment{
				Quantity:    dq,
				MarginalWTP: math.Sqrt(prevP * nextP),
			})
		}
		prevP, prevQ = nextP, nextQ
	}
	return bid, nil
}
