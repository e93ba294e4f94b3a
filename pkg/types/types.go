package types

import "time"

// Metal is the canonical column name of a heavy metal concentration.
type Metal string

// Metals recognised in uploaded datasets. The first four form the index set
// used by HPI, MI and CD; the rest are optional and only carried when present.
const (
	Lead     Metal = "Lead"
	Cadmium  Metal = "Cadmium"
	Arsenic  Metal = "Arsenic"
	Chromium Metal = "Chromium"
	Mercury  Metal = "Mercury"
	Copper   Metal = "Copper"
	Iron     Metal = "Iron"
	Uranium  Metal = "Uranium"
)

// AllMetals is the fixed enumeration in display order.
var AllMetals = []Metal{Lead, Cadmium, Arsenic, Chromium, Mercury, Copper, Iron, Uranium}

// IsMetal reports whether name is one of AllMetals.
func IsMetal(name string) bool {
	for _, m := range AllMetals {
		if string(m) == name {
			return true
		}
	}
	return false
}

// Symbol returns the chemical symbol for m, or "" for an unknown metal.
func (m Metal) Symbol() string {
	switch m {
	case Lead:
		return "Pb"
	case Cadmium:
		return "Cd"
	case Arsenic:
		return "As"
	case Chromium:
		return "Cr"
	case Mercury:
		return "Hg"
	case Copper:
		return "Cu"
	case Iron:
		return "Fe"
	case Uranium:
		return "U"
	default:
		return ""
	}
}

// Well-known non-metal columns.
const (
	ColumnSampleID  = "Sample_ID"
	ColumnLatitude  = "Latitude"
	ColumnLongitude = "Longitude"
)

// Category is the three-way risk bucket derived from HPI.
type Category string

const (
	CategorySafe     Category = "Safe"
	CategoryModerate Category = "Moderate"
	CategoryUnsafe   Category = "Unsafe"
)

// SampleRecord is one validated groundwater observation.
type SampleRecord struct {
	SampleID  string  `json:"sample_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Metals holds concentrations (mg/L) keyed by metal. A metal that was not
	// a column in the upload is absent rather than zero.
	Metals map[Metal]float64 `json:"metals"`

	// Attributes carries descriptive columns (Location, District,
	// Sampling_Date, Well_Type, ...) verbatim. Never validated.
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Concentration returns the concentration of m and whether it was measured.
func (r SampleRecord) Concentration(m Metal) (float64, bool) {
	v, ok := r.Metals[m]
	return v, ok
}

// ValidationResult is the outcome of ingesting one payload. Records and Errors
// may both be non-empty; a row is never represented in both.
type ValidationResult struct {
	Records []SampleRecord `json:"records"`
	Errors  []string       `json:"errors"`
}

// OK reports whether the payload ingested without any error.
func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

// IndexResult holds the pollution indices derived from one SampleRecord.
type IndexResult struct {
	HPI      float64  `json:"hpi"`
	MI       float64  `json:"mi"`
	HEI      float64  `json:"hei"`
	CD       float64  `json:"cd"`
	Category Category `json:"category"`
}

// ComputedRecord pairs a record with its indices.
type ComputedRecord struct {
	Record  SampleRecord `json:"record"`
	Indices IndexResult  `json:"indices"`
}

// CategoryCounts counts records per Category.
type CategoryCounts struct {
	Safe     int `json:"safe"`
	Moderate int `json:"moderate"`
	Unsafe   int `json:"unsafe"`
}

// Add increments the counter for c.
func (c *CategoryCounts) Add(cat Category) {
	switch cat {
	case CategorySafe:
		c.Safe++
	case CategoryModerate:
		c.Moderate++
	case CategoryUnsafe:
		c.Unsafe++
	}
}

// Merge adds the counts of o into c.
func (c *CategoryCounts) Merge(o CategoryCounts) {
	c.Safe += o.Safe
	c.Moderate += o.Moderate
	c.Unsafe += o.Unsafe
}

// Total is the number of counted records.
func (c CategoryCounts) Total() int { return c.Safe + c.Moderate + c.Unsafe }

// Reading is one sample's concentration of a given metal.
type Reading struct {
	SampleID string  `json:"sample_id"`
	Value    float64 `json:"value"`
}

// MetalExtreme is the highest and lowest measured concentration of a metal
// across a batch.
type MetalExtreme struct {
	Metal   Metal   `json:"metal"`
	Highest Reading `json:"highest"`
	Lowest  Reading `json:"lowest"`
}

// MetalShare is a metal's average concentration across a batch and its share
// of the summed averages of all metals.
type MetalShare struct {
	Metal      Metal   `json:"metal"`
	Average    float64 `json:"average"`
	Percentage float64 `json:"percentage"`
}

// AggregateSummary is derived from the whole collection of ComputedRecords.
type AggregateSummary struct {
	Samples int            `json:"samples"`
	Counts  CategoryCounts `json:"counts"`

	MeanHPI float64 `json:"mean_hpi"`
	MeanMI  float64 `json:"mean_mi"`
	MeanHEI float64 `json:"mean_hei"`
	MeanCD  float64 `json:"mean_cd"`
	MaxHPI  float64 `json:"max_hpi"`
	MaxCD   float64 `json:"max_cd"`

	Extremes     []MetalExtreme `json:"extremes"`
	Distribution []MetalShare   `json:"distribution"`

	// HighestShare and LowestShare are the first and last Distribution
	// entries; nil when no metal was measured.
	HighestShare *MetalShare `json:"highest_share,omitempty"`
	LowestShare  *MetalShare `json:"lowest_share,omitempty"`
}

// Bands are the HPI thresholds that map an index value to a Category.
//
//	hpi <  SafeBelow   → Safe
//	hpi >  UnsafeAbove → Unsafe
//	otherwise          → Moderate
//
// SafeBelow must not exceed UnsafeAbove.
type Bands struct {
	SafeBelow   float64 `json:"safe_below"`
	UnsafeAbove float64 `json:"unsafe_above"`
}

// Batch is one analysed upload as held by the server.
type Batch struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	CreatedAt time.Time        `json:"created_at"`
	Results   []ComputedRecord `json:"results"`
	Errors    []string         `json:"errors"`
	Summary   AggregateSummary `json:"summary"`

	// Bands are the thresholds Results were classified with.
	Bands Bands `json:"bands"`
}
