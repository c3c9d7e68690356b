package core

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// ColumnSummary describes the numbers in one numeric column.
// Sum, Mean, Min and Max are exact; Std is the sample standard deviation.
type ColumnSummary struct {
	Column  string          `json:"column"`
	Derived bool            `json:"derived"`
	Count   int             `json:"count"`
	Missing int             `json:"missing"`
	NaN     int             `json:"nan"`
	Sum     decimal.Decimal `json:"sum"`
	Mean    decimal.Decimal `json:"mean"`
	Min     decimal.Decimal `json:"min"`
	Max     decimal.Decimal `json:"max"`
	Std     *float64        `json:"std,omitempty"`
}

// Summarize returns a summary for each numeric column of t, in column order.
func Summarize(t *Table) []ColumnSummary {
	var out []ColumnSummary
	for j, col := range t.Columns() {
		if !col.IsNumeric() {
			continue
		}
		s := ColumnSummary{Column: col.Name, Derived: col.Derived}
		var nums []decimal.Decimal
		for _, row := range t.Rows() {
			switch v := row[j]; v.Kind {
			case KindMissing:
				s.Missing++
			case KindNaN:
				s.NaN++
			case KindNumber:
				nums = append(nums, v.Num)
			}
		}
		s.Count = len(nums)
		if s.Count > 0 {
			s.Sum = decimal.Sum(nums[0], nums[1:]...)
			s.Mean = s.Sum.Div(decimal.NewFromInt(int64(s.Count)))
			s.Min = decimal.Min(nums[0], nums[1:]...)
			s.Max = decimal.Max(nums[0], nums[1:]...)
		}
		if std, ok := sampleStd(floats(nums)); ok {
			s.Std = &std
		}
		out = append(out, s)
	}
	return out
}

func floats(nums []decimal.Decimal) []float64 {
	out := make([]float64, len(nums))
	for i, d := range nums {
		out[i] = d.InexactFloat64()
	}
	return out
}

// sampleStd uses the n-1 denominator and needs at least two values.
func sampleStd(vals []float64) (float64, bool) {
	if len(vals) < 2 {
		return 0, false
	}
	return stat.StdDev(vals, nil), true
}

// Capability targets.
const (
	CpMinimum   = 1.0
	CpGood      = 1.33
	CpHigh      = 1.67
	GageRRFloor = 10.0
)

// CapabilityInput names the columns of a measurement study. Spec limits and
// Gage R&R are read from the first non-missing cell of their column.
type CapabilityInput struct {
	Measure string
	LSL     string
	USL     string
	GageRR  string // optional

	// ProposedTolerance sizes the Forecast. Zero means the current
	// tolerance, USL - LSL.
	ProposedTolerance float64
}

// Scenario is a candidate tolerance centred on the process mean.
type Scenario struct {
	Name      string
	Tolerance float64
	Cp        float64
	Cpk       float64
	GageRR    *float64
	LSL       float64
	USL       float64
	Score     float64
}

// Forecast is the capability a proposed tolerance would give.
type Forecast struct {
	Tolerance float64
	Cp        float64
	GageRR    *float64
}

// CapabilityReport is the process-capability analysis of one measurement column.
type CapabilityReport struct {
	N         int
	Mean      float64
	Std       float64
	LSL       float64
	USL       float64
	Tolerance float64
	Cp        float64
	Cpk       float64
	GageRR    *float64

	Scenarios   []Scenario
	Recommended Scenario
	Forecast    *Forecast
}

// Capability computes Cp, Cpk and tolerance scenarios for a measurement column.
// A zero standard deviation makes Cp and Cpk +Inf.
func Capability(t *Table, in CapabilityInput) (*CapabilityReport, error) {
	measures, err := numbers(t, in.Measure)
	if err != nil {
		return nil, err
	}
	std, ok := sampleStd(measures)
	if !ok {
		return nil, fmt.Errorf("%w: %q has %d numeric values", ErrInsufficientData, in.Measure, len(measures))
	}

	lsl, err := firstNumber(t, in.LSL)
	if err != nil {
		return nil, err
	}
	usl, err := firstNumber(t, in.USL)
	if err != nil {
		return nil, err
	}

	rep := &CapabilityReport{
		N:         len(measures),
		Mean:      stat.Mean(measures, nil),
		Std:       std,
		LSL:       lsl,
		USL:       usl,
		Tolerance: usl - lsl,
	}
	rep.Cp = ratio(rep.Tolerance, 6*std)
	rep.Cpk = math.Min(ratio(rep.Mean-lsl, 3*std), ratio(usl-rep.Mean, 3*std))

	if in.GageRR != "" {
		g, err := firstNumber(t, in.GageRR)
		if err != nil {
			return nil, err
		}
		rep.GageRR = &g
	}

	rep.Scenarios = []Scenario{
		rep.cpScenario(fmt.Sprintf("Minimum Acceptable Tolerance (Cp = %.1f)", CpMinimum), CpMinimum),
		rep.cpScenario(fmt.Sprintf("Good Quality Tolerance (Cp = %.2f)", CpGood), CpGood),
		rep.cpScenario(fmt.Sprintf("High Quality Tolerance (Cp = %.2f)", CpHigh), CpHigh),
	}
	if rep.GageRR != nil {
		tol := *rep.GageRR * rep.Tolerance / GageRRFloor
		floor := GageRRFloor
		rep.Scenarios = append(rep.Scenarios, rep.newScenario(
			fmt.Sprintf("Excellent Measurement System (Gage R&R = %.0f%%)", GageRRFloor),
			tol, ratio(tol, 6*std), &floor))
	}
	rep.Recommended = rep.Scenarios[1]

	proposed := in.ProposedTolerance
	if proposed <= 0 {
		proposed = rep.Tolerance
	}
	if proposed > 0 {
		rep.Forecast = rep.forecast(proposed)
	}
	return rep, nil
}

// cpScenario sizes the tolerance for a target Cp and rescales Gage R&R to it.
func (r *CapabilityReport) cpScenario(name string, cp float64) Scenario {
	tol := 6 * r.Std * cp
	var gage *float64
	if r.GageRR != nil {
		g := ratio(*r.GageRR*r.Tolerance, tol)
		gage = &g
	}
	return r.newScenario(name, tol, cp, gage)
}

func (r *CapabilityReport) newScenario(name string, tol, cp float64, gage *float64) Scenario {
	s := Scenario{
		Name:      name,
		Tolerance: tol,
		Cp:        cp,
		Cpk:       cp,
		LSL:       r.Mean - tol/2,
		USL:       r.Mean + tol/2,
		GageRR:    gage,
		Score:     cp,
	}
	if gage != nil {
		s.Score = cp - *gage/100
	}
	return s
}

func (r *CapabilityReport) forecast(tol float64) *Forecast {
	f := &Forecast{Tolerance: tol, Cp: ratio(tol, 6*r.Std)}
	if r.GageRR != nil {
		g := *r.GageRR * r.Tolerance / tol
		f.GageRR = &g
	}
	return f
}

// ratio returns +Inf (or -Inf) when den is zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return math.Copysign(math.Inf(1), num)
	}
	return num / den
}

func numericColumn(t *Table, name string) (int, error) {
	resolved, _ := t.ResolveColumn(name)
	col, j, ok := t.Column(resolved)
	if !ok {
		return -1, unknownColumn(name)
	}
	if !col.IsNumeric() {
		return -1, &TypeMismatchError{Column: col.Name, Type: col.Type}
	}
	return j, nil
}

func numbers(t *Table, name string) ([]float64, error) {
	j, err := numericColumn(t, name)
	if err != nil {
		return nil, err
	}
	var out []float64
	for _, row := range t.Rows() {
		if v := row[j]; v.Kind == KindNumber {
			out = append(out, v.Num.InexactFloat64())
		}
	}
	return out, nil
}

func firstNumber(t *Table, name string) (float64, error) {
	j, err := numericColumn(t, name)
	if err != nil {
		return 0, err
	}
	for _, row := range t.Rows() {
		if v := row[j]; v.Kind == KindNumber {
			return v.Num.InexactFloat64(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q has no values", ErrInsufficientData, name)
}
