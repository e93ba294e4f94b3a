package ingest

import (
	"bytes"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

// SampleFilename is the suggested download name of the template dataset.
const SampleFilename = "water_quality_sample.csv"

// SampleRecords returns the three-well template dataset.
func SampleRecords() []types.SampleRecord {
	return []types.SampleRecord{
		{
			SampleID: "GW001", Latitude: 28.6139, Longitude: 77.2090,
			Metals: map[types.Metal]float64{
				types.Lead: 0.05, types.Cadmium: 0.002, types.Arsenic: 0.008,
				types.Chromium: 0.025, types.Mercury: 0.001, types.Copper: 0.15,
			},
		},
		{
			SampleID: "GW002", Latitude: 28.6200, Longitude: 77.2150,
			Metals: map[types.Metal]float64{
				types.Lead: 0.12, types.Cadmium: 0.008, types.Arsenic: 0.015,
				types.Chromium: 0.045, types.Mercury: 0.003, types.Copper: 0.28,
			},
		},
		{
			SampleID: "GW003", Latitude: 28.6180, Longitude: 77.2120,
			Metals: map[types.Metal]float64{
				types.Lead: 0.08, types.Cadmium: 0.005, types.Arsenic: 0.012,
				types.Chromium: 0.032, types.Mercury: 0.002, types.Copper: 0.19,
			},
		},
	}
}

// SampleCSV returns SampleRecords encoded as comma-separated text.
func SampleCSV() string {
	var buf bytes.Buffer
	// Writing to a bytes.Buffer cannot fail.
	_ = Encode(&buf, SampleRecords(), ',')
	return buf.String()
}
