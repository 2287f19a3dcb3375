// Package preprocess provides the chainable cleaning pipeline: missing
// value handling, type conversion, normalization, outlier removal, row
// filtering, and sampling over a private working copy of a dataset.
package preprocess

// Strategy selects how missing values in a column are handled. It is a
// closed union; each variant carries its own parameters.
type Strategy interface {
	missingStrategy()
}

// Drop removes rows with a missing value in the targeted column.
type Drop struct{}

// Mean fills missing entries with the column mean.
type Mean struct{}

// Median fills missing entries with the column median.
type Median struct{}

// Mode fills missing entries with the first mode, the smallest of the
// most frequent values.
type Mode struct{}

// Fill fills missing entries with an explicit value coerced to the
// column type.
type Fill struct {
	Value any
}

// Interpolate fills interior gaps linearly and carries the last value
// forward over trailing gaps. Leading missing entries stay missing.
type Interpolate struct{}

func (Drop) missingStrategy()        {}
func (Mean) missingStrategy()        {}
func (Median) missingStrategy()      {}
func (Mode) missingStrategy()        {}
func (Fill) missingStrategy()        {}
func (Interpolate) missingStrategy() {}

// Scaler selects a normalization method for numeric columns.
type Scaler interface {
	scaler()
}

// MinMax scales to (x - min) / (max - min).
type MinMax struct{}

// Standard scales to (x - mean) / std with the sample standard
// deviation (denominator n-1).
type Standard struct{}

// Robust scales to (x - median) / (Q3 - Q1).
type Robust struct{}

// MaxAbs scales to x / max(|x|).
type MaxAbs struct{}

func (MinMax) scaler()   {}
func (Standard) scaler() {}
func (Robust) scaler()   {}
func (MaxAbs) scaler()   {}

// Detector selects an outlier detection method.
type Detector interface {
	detector()
}

// ZScore flags values with |z| above Threshold (3.0 when zero).
type ZScore struct {
	Threshold float64
}

// IQR flags values outside [Q1 - m*IQR, Q3 + m*IQR] with m =
// Multiplier (1.5 when zero).
type IQR struct {
	Multiplier float64
}

func (ZScore) detector() {}
func (IQR) detector()    {}
