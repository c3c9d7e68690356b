package templates

// ErrorInfo is a user-facing error: what happened, what to do, and a code
// for support.
type ErrorInfo struct {
	Message string
	Action  string
	Code    string
}

// ExplorerData is everything the explorer page renders. Numbers arrive
// preformatted so the templates only lay out text.
type ExplorerData struct {
	Loaded      bool
	FileName    string
	RowSummary  string
	MaxUploadMB string

	Columns        []ColumnInfo
	NumericColumns []string
	Operators      []OperatorOption
	Rows           []RowData

	Filters     []FilterChip
	Derivations []DerivationChip

	Page        int
	TotalPages  int
	HasPrev     bool
	HasNext     bool
	EmptyResult bool

	Notices []string
	Error   *ErrorInfo
}

// ColumnInfo describes one visible column and its equality-filter choices.
type ColumnInfo struct {
	Name             string
	Type             string
	Class            string
	Options          []Option
	OptionsTruncated bool
}

// Option is one selectable equality-filter value.
type Option struct {
	Value    string
	Selected bool
}

// OperatorOption is one entry of the derived-column operator menu.
type OperatorOption struct {
	Value  string
	Symbol string
}

// RowData is one rendered table row.
type RowData struct {
	Number string
	Cells  []CellData
}

// CellData is one rendered cell.
type CellData struct {
	Text  string
	Class string
}

// FilterChip is an active filter with what is needed to remove it.
type FilterChip struct {
	Kind   string
	Column string
	Label  string
}

// DerivationChip is a derived column with what is needed to remove it.
type DerivationChip struct {
	Name  string
	Label string
}

// StatsData is everything the statistics page renders.
type StatsData struct {
	Loaded     bool
	RowSummary string

	Summaries      []SummaryRow
	NumericColumns []string
	Form           CapabilityForm
	Capability     *CapabilityView

	Error *ErrorInfo
}

// SummaryRow is one numeric column summary.
type SummaryRow struct {
	Column  string
	Count   string
	Missing string
	NaN     string
	Sum     string
	Mean    string
	Std     string
	Min     string
	Max     string
}

// CapabilityForm echoes the capability inputs back into the form.
type CapabilityForm struct {
	Measure   string
	LSL       string
	USL       string
	GageRR    string
	Tolerance string
}

// CapabilityView is a formatted capability report.
type CapabilityView struct {
	N         string
	Mean      string
	Std       string
	Tolerance string
	Cp        string
	Cpk       string
	GageRR    string

	Scenarios   []ScenarioRow
	Recommended ScenarioRow
	Forecast    *ScenarioRow
}

// ScenarioRow is one formatted tolerance scenario.
type ScenarioRow struct {
	Name      string
	Tolerance string
	LSL       string
	USL       string
	Cp        string
	GageRR    string
	Class     string
}
