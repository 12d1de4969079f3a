package data

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"gasplan/internal/config"
	"gasplan/internal/model"
)

func writeInput(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

// writeBaseInputs lays down the minimal required tables: one zone, one
// period, one series, two timepoints, and demand for both sectors.
func writeBaseInputs(t *testing.T, dir string) {
	t.Helper()
	writeInput(t, dir, FileZones, "zone,longitude,latitude\nMD,-76.6,39.3\n")
	writeInput(t, dir, FilePeriods, "period,start_year,end_year,discount_factor\n2030,2028,2032,0.85\n")
	writeInput(t, dir, FileTimeseries, "timeseries,period,scale_to_year\nwinter,2030,120\nsummer,2030,245\n")
	writeInput(t, dir, FileTimepoints, "timepoint,timeseries\nw1,winter\ns1,summer\n")
	writeInput(t, dir, FileDemandRef, ""+
		"zone,sector,timepoint,ref_price,ref_quantity,elasticity\n"+
		"MD,EI,w1,3.2,100,-0.2\n"+
		"MD,RC,w1,3.2,250,-0.1\n"+
		"MD,EI,s1,2.8,80,-0.2\n"+
		"MD,RC,s1,2.8,90,-0.1\n")
}

func scenarioFor(dir string) *config.Scenario {
	return &config.Scenario{Name: "t", InputsDir: dir, OutputsDir: dir}
}

func TestLoadTopologyMinimal(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)

	top, err := LoadTopology(scenarioFor(dir))
	require.NoError(t, err)

	require.Len(t, top.Zones, 1)
	require.Equal(t, 0.85, top.Periods[0].DiscountFactor)
	require.Len(t, top.DemandRefs, 4)

	// Timepoints inherit their series' annual recurrence.
	w1, ok := top.TimepointByName("w1")
	require.True(t, ok)
	require.Equal(t, 120.0, w1.WeightInYear)

	// Optional network tables are simply absent.
	require.Empty(t, top.Wells)
	require.Empty(t, top.Pipelines)

	// Missing elasticity column would default; here it is explicit.
	require.Equal(t, -0.1, top.DemandRefs[1].Elasticity)
}

func TestLoadTopologyWithNetworkTables(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)
	writeInput(t, dir, FileZones, "zone\nMD\nPA\n")
	writeInput(t, dir, FileWells, ""+
		"zone,drill_type,existing_count,production_rate,variable_cost,fixed_cost_per_well,max_new_wells\n"+
		"PA,horizontal,40,25,2.1,180000,10\n")
	writeInput(t, dir, FilePipelines, ""+
		"pipeline,zone_a,zone_b,length,capacity_a_to_b,capacity_b_to_a,transport_cost_per_unit\n"+
		"PA-MD,PA,MD,120,900,0,0.004\n")
	writeInput(t, dir, FileRCMarkup, "zone,markup\nMD,0.6\n")
	writeInput(t, dir, FileCostAdders, "period,annual_cost\n2030,2.4e6\n")
	writeInput(t, dir, FileAdderZones, "zone\nMD\n")

	top, err := LoadTopology(scenarioFor(dir))
	require.NoError(t, err)

	require.Len(t, top.Wells, 1)
	require.Equal(t, 40, top.Wells[0].ExistingCount)
	require.True(t, top.Wells[0].NewBuildAllowed, "builds default to allowed")

	require.Equal(t, 900.0, top.Pipelines[0].CapacityAtoB)
	require.Equal(t, 0.6, top.RCMarkup["MD"])
	require.Equal(t, 2.4e6, top.CostAdders["2030"])
	require.True(t, top.IsAdderZone("MD"))
	require.False(t, top.IsAdderZone("PA"))
}

func TestLoadTopologyAliasSwapsTable(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)
	writeInput(t, dir, "pipelines_exogenous.csv", ""+
		"pipeline,zone_a,zone_b\nEXO,MD,MD\n")

	s := scenarioFor(dir)
	s.Aliases = map[string]string{FilePipelines: "pipelines_exogenous.csv"}

	top, err := LoadTopology(s)
	require.NoError(t, err)
	require.Len(t, top.Pipelines, 1)
	require.Equal(t, "EXO", top.Pipelines[0].Name)
}

func TestLoadTopologyMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)
	writeInput(t, dir, FilePeriods, "period,start_year\n2030,2028\n")

	_, err := LoadTopology(scenarioFor(dir))
	require.ErrorContains(t, err, `missing required column "discount_factor"`)
}

func TestLoadTopologyRejectsUnknownSector(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)
	writeInput(t, dir, FileDemandRef, ""+
		"zone,sector,timepoint,ref_price,ref_quantity\nMD,COM,w1,3.2,100\n")

	_, err := LoadTopology(scenarioFor(dir))
	require.ErrorContains(t, err, `unknown sector "COM"`)
}

func TestCrossValidation(t *testing.T) {
	dir := t.TempDir()
	writeBaseInputs(t, dir)
	writeInput(t, dir, FileDemandRef, ""+
		"zone,sector,timepoint,ref_price,ref_quantity\nVA,EI,w1,3.2,100\n")

	_, err := LoadTopology(scenarioFor(dir))
	require.ErrorContains(t, err, `unknown zone "VA"`)

	writeBaseInputs(t, dir)
	writeInput(t, dir, FileTimepoints, "timepoint,timeseries\nw1,autumn\n")
	_, err = LoadTopology(scenarioFor(dir))
	require.ErrorContains(t, err, `unknown timeseries "autumn"`)
}

func TestSectorValidity(t *testing.T) {
	require.True(t, model.SectorEI.Valid())
	require.True(t, model.SectorRC.Valid())
	require.False(t, model.Sector("COM").Valid())
}
