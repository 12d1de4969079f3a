// Package data loads the tabular scenario inputs. File names are canonical
// but resolvable through the scenario's alias table, which is how exogenous
// pipeline cases swap in alternate tables without duplicating a directory.
package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gasplan/internal/config"
	"gasplan/internal/model"
)

// Canonical input file names.
const (
	FileZones      = "zones.csv"
	FilePeriods    = "periods.csv"
	FileTimeseries = "timeseries.csv"
	FileTimepoints = "timepoints.csv"
	FileDemandRef  = "demand_reference.csv"
	FilePipelines  = "pipelines.csv"
	FileStorage    = "storage.csv"
	FileWells      = "wells.csv"
	FileLNG        = "lng.csv"
	FileRCMarkup   = "rc_markup.csv"
	FileCostAdders = "cost_adders.csv"
	FileAdderZones = "adder_zones.csv"
)

// LoadTopology reads every input table for a scenario and cross-validates
// references. Network tables are optional; the time structure and demand
// reference are not.
func LoadTopology(s *config.Scenario) (*model.Topology, error) {
	top := &model.Topology{
		RCMarkup:   map[string]float64{},
		CostAdders: map[string]float64{},
	}

	if err := loadZones(s.ResolveInput(FileZones), top); err != nil {
		return nil, err
	}
	if err := loadPeriods(s.ResolveInput(FilePeriods), top); err != nil {
		return nil, err
	}
	if err := loadTimeseries(s.ResolveInput(FileTimeseries), top); err != nil {
		return nil, err
	}
	if err := loadTimepoints(s.ResolveInput(FileTimepoints), top); err != nil {
		return nil, err
	}
	if err := loadDemandRefs(s.ResolveInput(FileDemandRef), top); err != nil {
		return nil, err
	}

	optional := []struct {
		name string
		load func(string, *model.Topology) error
	}{
		{FilePipelines, loadPipelines},
		{FileStorage, loadStorage},
		{FileWells, loadWells},
		{FileLNG, loadLNG},
		{FileRCMarkup, loadRCMarkup},
		{FileCostAdders, loadCostAdders},
		{FileAdderZones, loadAdderZones},
	}
	for _, f := range optional {
		path := s.ResolveInput(f.name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := f.load(path, top); err != nil {
			return nil, err
		}
	}

	if err := crossValidate(top); err != nil {
		return nil, err
	}
	return top, nil
}

// table is a header-indexed CSV file.
type table struct {
	path   string
	header map[string]int
	rows   [][]string
}

func readTable(path string, required ...string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	t := &table{path: path, header: map[string]int{}, rows: records[1:]}
	for i, col := range records[0] {
		t.header[strings.TrimSpace(col)] = i
	}
	for _, col := range required {
		if _, ok := t.header[col]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", path, col)
		}
	}
	return t, nil
}

func (t *table) str(row []string, col string) string {
	i, ok := t.header[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) float(row []string, col string, def float64) (float64, error) {
	s := t.str(row, col)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: column %q: %w", t.path, col, err)
	}
	return v, nil
}

func (t *table) integer(row []string, col string, def int) (int, error) {
	s := t.str(row, col)
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: column %q: %w", t.path, col, err)
	}
	return v, nil
}

func (t *table) boolean(row []string, col string, def bool) (bool, error) {
	s := strings.ToLower(t.str(row, col))
	switch s {
	case "":
		return def, nil
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("%s: column %q: cannot parse %q as bool", t.path, col, s)
	}
}

func loadZones(path string, top *model.Topology) error {
	t, err := readTable(path, "zone")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		z := model.Zone{Name: t.str(row, "zone")}
		if z.Longitude, err = t.float(row, "longitude", 0); err != nil {
			return err
		}
		if z.Latitude, err = t.float(row, "latitude", 0); err != nil {
			return err
		}
		if z.NewWellsAllowed, err = t.boolean(row, "new_wells_allowed", true); err != nil {
			return err
		}
		if z.NewLNGAllowed, err = t.boolean(row, "new_lng_allowed", true); err != nil {
			return err
		}
		top.Zones = append(top.Zones, z)
	}
	return nil
}

func loadPeriods(path string, top *model.Topology) error {
	t, err := readTable(path, "period", "discount_factor")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		p := model.Period{Name: t.str(row, "period")}
		if p.StartYear, err = t.integer(row, "start_year", 0); err != nil {
			return err
		}
		if p.EndYear, err = t.integer(row, "end_year", 0); err != nil {
			return err
		}
		if p.DiscountFactor, err = t.float(row, "discount_factor", 1); err != nil {
			return err
		}
		top.Periods = append(top.Periods, p)
	}
	return nil
}

func loadTimeseries(path string, top *model.Topology) error {
	t, err := readTable(path, "timeseries", "period", "scale_to_year")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		ts := model.Timeseries{
			Name:   t.str(row, "timeseries"),
			Period: t.str(row, "period"),
		}
		if ts.ScaleToYear, err = t.float(row, "scale_to_year", 1); err != nil {
			return err
		}
		if ts.DurationHrs, err = t.float(row, "duration_hours", 24); err != nil {
			return err
		}
		top.Timeseries = append(top.Timeseries, ts)
	}
	return nil
}

func loadTimepoints(path string, top *model.Topology) error {
	t, err := readTable(path, "timepoint", "timeseries")
	if err != nil {
		return err
	}
	scale := map[string]float64{}
	for _, ts := range top.Timeseries {
		scale[ts.Name] = ts.ScaleToYear
	}
	for _, row := range t.rows {
		tp := model.Timepoint{
			Name:       t.str(row, "timepoint"),
			Timeseries: t.str(row, "timeseries"),
		}
		// Each timepoint recurs as often as its series does.
		tp.WeightInYear = scale[tp.Timeseries]
		top.Timepoints = append(top.Timepoints, tp)
	}
	return nil
}

func loadDemandRefs(path string, top *model.Topology) error {
	t, err := readTable(path, "zone", "sector", "timepoint", "ref_price", "ref_quantity")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		ref := model.DemandRef{
			Zone:      t.str(row, "zone"),
			Sector:    model.Sector(t.str(row, "sector")),
			Timepoint: t.str(row, "timepoint"),
		}
		if !ref.Sector.Valid() {
			return fmt.Errorf("%s: unknown sector %q", path, ref.Sector)
		}
		if ref.RefPrice, err = t.float(row, "ref_price", 0); err != nil {
			return err
		}
		if ref.RefQuantity, err = t.float(row, "ref_quantity", 0); err != nil {
			return err
		}
		if ref.Elasticity, err = t.float(row, "elasticity", -0.1); err != nil {
			return err
		}
		top.DemandRefs = append(top.DemandRefs, ref)
	}
	return nil
}

func loadPipelines(path string, top *model.Topology) error {
	t, err := readTable(path, "pipeline", "zone_a", "zone_b")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		p := model.Pipeline{
			Name:  t.str(row, "pipeline"),
			ZoneA: t.str(row, "zone_a"),
			ZoneB: t.str(row, "zone_b"),
		}
		if p.Length, err = t.float(row, "length", 0); err != nil {
			return err
		}
		if p.CapacityAtoB, err = t.float(row, "capacity_a_to_b", 0); err != nil {
			return err
		}
		if p.CapacityBtoA, err = t.float(row, "capacity_b_to_a", 0); err != nil {
			return err
		}
		if p.NewBuildAllowed, err = t.boolean(row, "new_build_allowed", true); err != nil {
			return err
		}
		if p.ExpansionCostPerUnit, err = t.float(row, "expansion_cost_per_unit", 0); err != nil {
			return err
		}
		if p.TransportCostPerUnit, err = t.float(row, "transport_cost_per_unit", 0); err != nil {
			return err
		}
		top.Pipelines = append(top.Pipelines, p)
	}
	return nil
}

func loadStorage(path string, top *model.Topology) error {
	t, err := readTable(path, "zone", "type")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		s := model.StorageUnit{
			Zone: t.str(row, "zone"),
			Type: t.str(row, "type"),
		}
		if s.ReleaseCapacity, err = t.float(row, "release_capacity", 0); err != nil {
			return err
		}
		if s.Efficiency, err = t.float(row, "efficiency", 1); err != nil {
			return err
		}
		if s.CycleCost, err = t.float(row, "cycle_cost", 0); err != nil {
			return err
		}
		if s.NewBuildAllowed, err = t.boolean(row, "new_build_allowed", false); err != nil {
			return err
		}
		top.Storage = append(top.Storage, s)
	}
	return nil
}

func loadWells(path string, top *model.Topology) error {
	t, err := readTable(path, "zone", "drill_type", "production_rate")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		w := model.Well{
			Zone:      t.str(row, "zone"),
			DrillType: t.str(row, "drill_type"),
		}
		if w.ExistingCount, err = t.integer(row, "existing_count", 0); err != nil {
			return err
		}
		if w.ProductionRate, err = t.float(row, "production_rate", 0); err != nil {
			return err
		}
		if w.VariableCost, err = t.float(row, "variable_cost", 0); err != nil {
			return err
		}
		if w.FixedCostPerWell, err = t.float(row, "fixed_cost_per_well", 0); err != nil {
			return err
		}
		if w.NewBuildAllowed, err = t.boolean(row, "new_build_allowed", true); err != nil {
			return err
		}
		if w.MaxNewWells, err = t.integer(row, "max_new_wells", 0); err != nil {
			return err
		}
		top.Wells = append(top.Wells, w)
	}
	return nil
}

func loadLNG(path string, top *model.Topology) error {
	t, err := readTable(path, "zone")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		l := model.LNGTerminal{Zone: t.str(row, "zone")}
		if l.VaporizationCapacity, err = t.float(row, "vaporization_capacity", 0); err != nil {
			return err
		}
		if l.ImportLimit, err = t.float(row, "import_limit", 0); err != nil {
			return err
		}
		if l.ImportPrice, err = t.float(row, "import_price", 0); err != nil {
			return err
		}
		if l.NewBuildAllowed, err = t.boolean(row, "new_build_allowed", true); err != nil {
			return err
		}
		if l.ExpansionCostPerUnit, err = t.float(row, "expansion_cost_per_unit", 0); err != nil {
			return err
		}
		top.LNG = append(top.LNG, l)
	}
	return nil
}

func loadRCMarkup(path string, top *model.Topology) error {
	t, err := readTable(path, "zone", "markup")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		v, err := t.float(row, "markup", 0)
		if err != nil {
			return err
		}
		top.RCMarkup[t.str(row, "zone")] = v
	}
	return nil
}

func loadCostAdders(path string, top *model.Topology) error {
	t, err := readTable(path, "period", "annual_cost")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		v, err := t.float(row, "annual_cost", 0)
		if err != nil {
			return err
		}
		top.CostAdders[t.str(row, "period")] = v
	}
	return nil
}

func loadAdderZones(path string, top *model.Topology) error {
	t, err := readTable(path, "zone")
	if err != nil {
		return err
	}
	for _, row := range t.rows {
		top.AdderZones = append(top.AdderZones, t.str(row, "zone"))
	}
	return nil
}

// crossValidate checks referential integrity between tables.
func crossValidate(top *model.Topology) error {
	zones := map[string]bool{}
	for _, z := range top.Zones {
		zones[z.Name] = true
	}
	periods := map[string]bool{}
	for _, p := range top.Periods {
		periods[p.Name] = true
	}
	series := map[string]bool{}
	for _, ts := range top.Timeseries {
		if !periods[ts.Period] {
			return fmt.Errorf("timeseries %q references unknown period %q", ts.Name, ts.Period)
		}
		series[ts.Name] = true
	}
	tps := map[string]bool{}
	for _, tp := range top.Timepoints {
		if !series[tp.Timeseries] {
			return fmt.Errorf("timepoint %q references unknown timeseries %q", tp.Name, tp.Timeseries)
		}
		tps[tp.Name] = true
	}
	for _, ref := range top.DemandRefs {
		if !zones[ref.Zone] {
			return fmt.Errorf("demand reference for unknown zone %q", ref.Zone)
		}
		if !tps[ref.Timepoint] {
			return fmt.Errorf("demand reference for unknown timepoint %q", ref.Timepoint)
		}
	}
	for _, p := range top.Pipelines {
		if !zones[p.ZoneA] || !zones[p.ZoneB] {
			return fmt.Errorf("pipeline %q references unknown zone", p.Name)
		}
	}
	for _, w := range top.Wells {
		if !zones[w.Zone] {
			return fmt.Errorf("well group in unknown zone %q", w.Zone)
		}
	}
	for _, l := range top.LNG {
		if !zones[l.Zone] {
			return fmt.Errorf("LNG terminal in unknown zone %q", l.Zone)
		}
	}
	for _, s := range top.Storage {
		if !zones[s.Zone] {
			return fmt.Errorf("storage in unknown zone %q", s.Zone)
		}
	}
	for _, z := range top.AdderZones {
		if !zones[z] {
			return fmt.Errorf("cost-adder zone %q is unknown", z)
		}
	}
	return nil
}
