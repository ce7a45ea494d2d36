package scoring

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Tolerance is the allowed distance between a weight total and 100.
const Tolerance = 0.01

const (
	minWeight = 0
	maxWeight = 100
)

var ErrUnknownSection = errors.New("unknown section")

// WeightSet maps a section name to its weight in percent.
type WeightSet map[string]float64

// ValidationError is returned when weights do not total 100.
type ValidationError struct {
	Sum float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("weights must total 100%% (currently %.2f%%)", e.Sum)
}

// EqualWeights splits 100 evenly across the sections.
func EqualWeights(sections []string) WeightSet {
	ws := make(WeightSet, len(sections))
	if len(sections) == 0 {
		return ws
	}
	share := float64(maxWeight) / float64(len(sections))
	for _, s := range sections {
		ws[s] = share
	}
	return ws
}

func (w WeightSet) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

func (w WeightSet) Valid() bool {
	return math.Abs(w.Sum()-maxWeight) <= Tolerance
}

// Validate checks the range of every weight and the total.
func (w WeightSet) Validate() error {
	for _, section := range w.Sections() {
		if err := checkRange(section, w[section]); err != nil {
			return err
		}
	}
	if !w.Valid() {
		return &ValidationError{Sum: w.Sum()}
	}
	return nil
}

// Sections returns the section names in lexical order.
func (w WeightSet) Sections() []string {
	sections := make([]string, 0, len(w))
	for s := range w {
		sections = append(sections, s)
	}
	slices.Sort(sections)
	return sections
}

func (w WeightSet) Clone() WeightSet {
	cp := make(WeightSet, len(w))
	for k, v := range w {
		cp[k] = v
	}
	return cp
}

func checkRange(section string, value float64) error {
	if math.IsNaN(value) || value < minWeight || value > maxWeight {
		return fmt.Errorf("weight for %q must be between %d and %d, got %v", section, minWeight, maxWeight, value)
	}
	return nil
}
