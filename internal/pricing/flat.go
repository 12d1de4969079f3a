// Package pricing finds the flat residential-and-commercial price that makes
// sector revenue equal sector cost responsibility over a period. Demand is
// elastic, so the balance is a root-finding problem nested inside the outer
// equilibrium loop.
package pricing

import (
	"errors"
	"fmt"
	"math"

	"gasplan/internal/demand"
)

// ErrRevenueNeutralityNotFound marks an inner root-find that exhausted its
// budget or search bounds. It is distinct from outer non-convergence: the
// caller must fail the scenario rather than approximate the price.
var ErrRevenueNeutralityNotFound = errors.New("revenue-neutral flat price not found")

// TimepointLoad is the flat-priced sector's situation at one timepoint of the
// period: its demand calibration, the cost the system needs to recover per
// unit served there (marginal cost + markup + exogenous adder), and the
// weight converting per-timepoint volumes to period volumes.
type TimepointLoad struct {
	Cal             demand.Calibration
	RecoverableCost float64
	Weight          float64
}

type Options struct {
	MaxIterations int     // inner iteration budget (Newton + bisection combined)
	Tolerance     float64 // relative revenue imbalance treated as balanced
}

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = 60
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-9
	}
	return o
}

// FlatPrice solves for p such that
//
//	sum(p * q(p,t) * w(t)) == sum(cost(t) * q(p,t) * w(t))
//
// over the timepoints of one period. Newton iteration from a demand-weighted
// average-cost guess, with a bracketed bisection fallback when Newton leaves
// the positive search interval or stalls.
func FlatPrice(curve demand.Curve, loads []TimepointLoad, opts Options) (float64, error) {
	opts = opts.withDefaults()
	if len(loads) == 0 {
		return 0, fmt.Errorf("%w: no timepoints in period", ErrRevenueNeutralityNotFound)
	}

	guess, err := averageCost(loads)
	if err != nil {
		return 0, err
	}
	if guess <= 0 {
		// The search interval must stay strictly positive; a non-positive
		// cost responsibility has no revenue-neutral price there.
		return 0, fmt.Errorf("%w: average recoverable cost %g is not positive", ErrRevenueNeutralityNotFound, guess)
	}

	scale := revenueScale(curve, loads, guess)

	imbalance := func(p float64) (float64, error) {
		total := 0.0
		for _, l := range loads {
			q, err := curve.Quantity(l.Cal, p)
			if err != nil {
				return 0, err
			}
			total += (l.RecoverableCost - p) * q * l.Weight
		}
		return total, nil
	}

	// Newton phase.
	p := guess
	budget := opts.MaxIterations
	for i := 0; i < budget/2; i++ {
		f, err := imbalance(p)
		if err != nil {
			return 0, err
		}
		if math.Abs(f) <= opts.Tolerance*scale {
			return p, nil
		}
		h := math.Max(1e-9, 1e-6*p)
		f2, err := imbalance(p + h)
		if err != nil {
			return 0, err
		}
		deriv := (f2 - f) / h
		if deriv == 0 || math.IsNaN(deriv) {
			break
		}
		next := p - f/deriv
		if next <= 0 || math.IsInf(next, 0) || math.IsNaN(next) {
			break
		}
		p = next
	}

	// Bisection fallback over a bounded positive interval around the guess.
	lo, hi := guess/64, guess*64
	flo, err := imbalance(lo)
	if err != nil {
		return 0, err
	}
	fhi, err := imbalance(hi)
	if err != nil {
		return 0, err
	}
	if flo*fhi > 0 {
		return 0, fmt.Errorf("%w: no sign change on [%g, %g]", ErrRevenueNeutralityNotFound, lo, hi)
	}
	for i := 0; i < budget; i++ {
		mid := 0.5 * (lo + hi)
		fm, err := imbalance(mid)
		if err != nil {
			return 0, err
		}
		if math.Abs(fm) <= opts.Tolerance*scale || (hi-lo) <= 1e-12*guess {
			return mid, nil
		}
		if flo*fm <= 0 {
			hi = mid
		} else {
			lo, flo = mid, fm
		}
	}
	return 0, fmt.Errorf("%w: budget of %d iterations exhausted", ErrRevenueNeutralityNotFound, budget)
}

// averageCost is the demand-weighted recoverable cost at reference
// quantities, used as the Newton starting point.
func averageCost(loads []TimepointLoad) (float64, error) {
	num, den := 0.0, 0.0
	for _, l := range loads {
		num += l.RecoverableCost * l.Cal.RefQuantity * l.Weight
		den += l.Cal.RefQuantity * l.Weight
	}
	if den == 0 {
		return 0, fmt.Errorf("%w: period has no reference demand", ErrRevenueNeutralityNotFound)
	}
	return num / den, nil
}

func revenueScale(curve demand.Curve, loads []TimepointLoad, guess float64) float64 {
	total := 0.0
	for _, l := range loads {
		q, err := curve.Quantity(l.Cal, math.Max(guess, 1e-9))
		if err != nil {
			continue
		}
		total += math.Abs(guess) * q * l.Weight
	}
	return math.Max(total, 1)
}
