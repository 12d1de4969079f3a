package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"gasplan/internal/demand"
)

// Capability tags a scenario can compose. The set is closed: tags map to
// concrete implementations at load time, and the controller only ever sees
// the interfaces behind them.
const (
	ModuleNetworkBuild   = "network-build"
	ModuleWellBuild      = "well-build"
	ModuleLNGBuild       = "lng-build"
	ModuleBalance        = "balance"
	ModuleDemandResponse = "demand-response"
)

var knownModules = map[string]bool{
	ModuleNetworkBuild:   true,
	ModuleWellBuild:      true,
	ModuleLNGBuild:       true,
	ModuleBalance:        true,
	ModuleDemandResponse: true,
}

// Scenario is the on-disk descriptor for one run (YAML).
type Scenario struct {
	Name       string `yaml:"name"`
	InputsDir  string `yaml:"inputs_dir"`
	OutputsDir string `yaml:"outputs_dir"`

	Modules []string `yaml:"modules"`

	// Iterate enables the elastic-demand equilibrium loop. When false the
	// scenario is a single solve against reference demand.
	Iterate bool `yaml:"iterate"`

	FlatPricing  bool   `yaml:"flat_pricing"`
	DemandModule string `yaml:"demand_module"`

	// Aliases substitute one input file name for another at load time, so
	// exogenous-pipeline cases don't need duplicated input directories.
	Aliases map[string]string `yaml:"aliases"`

	Tolerance           float64 `yaml:"tolerance"`
	QuantityFloor       float64 `yaml:"quantity_floor"`
	MaxIterations       int     `yaml:"max_iterations"`
	BidSegments         int     `yaml:"bid_segments"`
	PriceFloor          float64 `yaml:"price_floor"`
	SolveTimeoutSeconds float64 `yaml:"solve_timeout_seconds"`
}

// Batch is a list of scenario descriptors executed in order.
type Batch struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

func LoadScenario(path string) (*Scenario, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Scenario
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	resolveDirs(&s, filepath.Dir(path))
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.Name, err)
	}
	return &s, nil
}

func LoadBatch(path string) (*Batch, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b Batch
	if err := yaml.Unmarshal(raw, &b); err != nil {
		return nil, err
	}
	if len(b.Scenarios) == 0 {
		return nil, errors.New("batch file lists no scenarios")
	}
	for i := range b.Scenarios {
		resolveDirs(&b.Scenarios[i], filepath.Dir(path))
		if err := b.Scenarios[i].Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", b.Scenarios[i].Name, err)
		}
	}
	return &b, nil
}

// resolveDirs interprets relative input/output dirs as relative to the
// descriptor file, falling back to the literal path if nothing exists there.
func resolveDirs(s *Scenario, base string) {
	if s.InputsDir != "" && !filepath.IsAbs(s.InputsDir) {
		cand := filepath.Join(base, s.InputsDir)
		if _, err := os.Stat(cand); err == nil {
			s.InputsDir = cand
		}
	}
	if s.OutputsDir != "" && !filepath.IsAbs(s.OutputsDir) {
		s.OutputsDir = filepath.Join(base, s.OutputsDir)
	}
}

func (s *Scenario) Validate() error {
	if s == nil {
		return errors.New("scenario is nil")
	}
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.InputsDir == "" {
		return errors.New("inputs_dir is required")
	}
	if s.OutputsDir == "" {
		return errors.New("outputs_dir is required")
	}
	for _, m := range s.Modules {
		if !knownModules[m] {
			return fmt.Errorf("unknown module %q", m)
		}
	}
	if s.Iterate && !s.HasModule(ModuleDemandResponse) {
		return errors.New("iterate requires the demand-response module")
	}
	if _, err := demand.New(s.DemandModule); err != nil {
		return err
	}
	if s.Tolerance < 0 || s.QuantityFloor < 0 || s.MaxIterations < 0 || s.BidSegments < 0 || s.SolveTimeoutSeconds < 0 {
		return errors.New("numeric loop settings must be non-negative")
	}
	return nil
}

func (s *Scenario) HasModule(tag string) bool {
	for _, m := range s.Modules {
		if m == tag {
			return true
		}
	}
	return false
}

// ResolveInput maps a canonical input file name through the alias table and
// returns the full path under inputs_dir.
func (s *Scenario) ResolveInput(name string) string {
	if alias, ok := s.Aliases[name]; ok {
		name = alias
	}
	return filepath.Join(s.InputsDir, name)
}
