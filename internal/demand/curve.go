package demand

import (
	"errors"
	"fmt"
)

// ErrInvalidCalibration marks malformed reference data: non-positive
// reference price, negative reference quantity, non-positive offered price,
// or non-negative elasticity. Calibration problems are fatal to a scenario.
var ErrInvalidCalibration = errors.New("invalid calibration input")

// Calibration anchors a demand curve at a reference price/quantity pair.
type Calibration struct {
	RefPrice    float64
	RefQuantity float64
	Elasticity  float64 // negative for ordinary demand
}

func (c Calibration) Validate() error {
	if c.RefPrice <= 0 {
		return fmt.Errorf("%w: reference price %v must be > 0", ErrInvalidCalibration, c.RefPrice)
	}
	if c.RefQuantity < 0 {
		return fmt.Errorf("%w: reference quantity %v must be >= 0", ErrInvalidCalibration, c.RefQuantity)
	}
	if c.Elasticity >= 0 {
		return fmt.Errorf("%w: elasticity %v must be < 0", ErrInvalidCalibration, c.Elasticity)
	}
	return nil
}

// Segment is one block of a piecewise-linear willingness-to-pay curve.
// Quantity is the block size; MarginalWTP is the value of each unit in the
// block. Blocks are ordered by decreasing MarginalWTP so the engine can treat
// them as a downward-sloping bid stack. The first block is the must-serve
// floor.
type Segment struct {
	Quantity    float64
	MarginalWTP float64
}

// Bid is what the demand system offers the engine for one
// (zone, sector, timepoint) at a given price.
type Bid struct {
	Price    float64
	Quantity float64
	WTP      float64 // net private benefit relative to the calibration point
	Segments []Segment
}

// Curve maps prices to price-responsive quantities and bid curves.
// Implementations form a small closed set selected once at scenario setup.
type Curve interface {
	Name() string
	Quantity(cal Calibration, price float64) (float64, error)
	Bid(cal Calibration, price float64, segments int) (Bid, error)
}

// New selects a curve implementation by configured name.
func New(name string) (Curve, error) {
	switch name {
	case "", "constant-elasticity":
		return ConstantElasticity{}, nil
	default:
		return nil, fmt.Errorf("unsupported demand module: %q", name)
	}
}
