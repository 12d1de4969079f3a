package model

// Sector is a demand class. Prices for the EI sector track marginal cost per
// timepoint; the RC sector can optionally be charged one flat price per period.
type Sector string

const (
	SectorEI Sector = "EI" // electricity and industrial
	SectorRC Sector = "RC" // residential and commercial
)

// Sectors lists the two demand classes in a stable order.
var Sectors = []Sector{SectorEI, SectorRC}

func (s Sector) Valid() bool {
	return s == SectorEI || s == SectorRC
}

// Zone is a geographic supply/demand node.
type Zone struct {
	Name      string
	Longitude float64
	Latitude  float64

	NewWellsAllowed bool
	NewLNGAllowed   bool
}

// Period is one segment of the investment horizon.
type Period struct {
	Name      string
	StartYear int
	EndYear   int

	// DiscountFactor brings annual costs incurred in this period to
	// base-year dollars. It is produced upstream by the financial tables;
	// this package treats it as given.
	DiscountFactor float64
}

// Timeseries is a representative cluster of timepoints (e.g. a sample day).
type Timeseries struct {
	Name   string
	Period string

	// ScaleToYear is the number of times this series occurs per year of the
	// period it represents.
	ScaleToYear float64
	DurationHrs float64
}

// Timepoint is the finest temporal granularity. Every timepoint belongs to
// exactly one timeseries.
type Timepoint struct {
	Name       string
	Timeseries string

	// WeightInYear converts a per-timepoint quantity into an annual quantity
	// (series scale divided across the timepoints of the series). Derived at
	// load time.
	WeightInYear float64
}
