package models

// ScenarioRequest is an inline scenario descriptor submitted over HTTP.
// Paths are interpreted on the server.
type ScenarioRequest struct {
	Name       string `json:"name" binding:"required"`
	InputsDir  string `json:"inputs_dir" binding:"required"`
	OutputsDir string `json:"outputs_dir" binding:"required"`

	Modules []string `json:"modules,omitempty"`

	Iterate      bool   `json:"iterate,omitempty"`
	FlatPricing  bool   `json:"flat_pricing,omitempty"`
	DemandModule string `json:"demand_module,omitempty"`

	Aliases map[string]string `json:"aliases,omitempty"`

	Tolerance           float64 `json:"tolerance,omitempty"`
	QuantityFloor       float64 `json:"quantity_floor,omitempty"`
	MaxIterations       int     `json:"max_iterations,omitempty"`
	BidSegments         int     `json:"bid_segments,omitempty"`
	PriceFloor          float64 `json:"price_floor,omitempty"`
	SolveTimeoutSeconds float64 `json:"solve_timeout_seconds,omitempty"`
}

// BatchRequest runs several scenarios in order.
type BatchRequest struct {
	Scenarios []ScenarioRequest `json:"scenarios" binding:"required,min=1"`
}
