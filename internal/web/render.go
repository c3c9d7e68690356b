package web

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvexplorer/internal/core"
	"github.com/JonMunkholm/csvexplorer/internal/logging"
	"github.com/JonMunkholm/csvexplorer/internal/web/templates"
)

// render writes body inside the page layout with the given status.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, title string, body templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.Layout(title, body).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "title", title, "error", err)
	}
}

// renderExplorer renders the explorer page for the session's current view.
// A non-nil actionErr is shown inline above the unchanged table.
func (s *Server) renderExplorer(w http.ResponseWriter, r *http.Request, page int, actionErr error) {
	status := http.StatusOK
	var alert *templates.ErrorInfo
	if actionErr != nil {
		status = statusFor(actionErr)
		info := errorInfo(logError(r, actionErr, status))
		alert = &info
	}

	d, err := s.explorerData(session(r), page)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	d.Error = alert
	if sessionExpired(r) && actionErr == nil {
		d.Notices = append([]string{"Your previous session expired, so its table was discarded."}, d.Notices...)
	}
	s.render(w, r, status, "Explorer", templates.Explorer(d))
}

// explorerData turns the session's view into template data.
func (s *Server) explorerData(sess *core.Session, page int) (templates.ExplorerData, error) {
	d := templates.ExplorerData{
		MaxUploadMB: strconv.FormatInt(s.service.MaxFileSize()>>20, 10),
	}
	view, err := sess.View()
	if errors.Is(err, core.ErrNoTable) {
		return d, nil
	}
	if err != nil {
		return d, err
	}

	d.Loaded = true
	d.FileName = view.Base.Name()
	d.RowSummary = rowSummary(view)
	d.EmptyResult = view.IsEmptyResult()

	filters := view.State.Filters
	for _, col := range view.Table.Columns() {
		info := templates.ColumnInfo{
			Name:  col.Name,
			Type:  col.Type.String(),
			Class: columnClass(col),
		}
		values, truncated, err := view.Full.Distinct(col.Name, s.cfg.View.MaxDistinctValues)
		if err != nil {
			return d, err
		}
		selected := map[string]bool{}
		if eq, ok := filters.Equality(col.Name); ok {
			for _, v := range eq.Values {
				selected[v] = true
			}
		}
		for _, v := range values {
			info.Options = append(info.Options, templates.Option{Value: v, Selected: selected[v]})
		}
		info.OptionsTruncated = truncated
		d.Columns = append(d.Columns, info)
		if col.IsNumeric() {
			d.NumericColumns = append(d.NumericColumns, col.Name)
		}
	}
	for _, op := range core.Operators {
		d.Operators = append(d.Operators, templates.OperatorOption{Value: string(op), Symbol: op.Symbol()})
	}

	p := view.Table.Page(page, s.cfg.View.PageSize)
	cols := view.Table.Columns()
	for i, row := range p.Rows {
		rd := templates.RowData{Number: strconv.Itoa(p.Start + i + 1)}
		for j, v := range row {
			rd.Cells = append(rd.Cells, templates.CellData{Text: v.Raw, Class: cellClass(cols[j], v)})
		}
		d.Rows = append(d.Rows, rd)
	}
	d.Page, d.TotalPages = p.Number, p.TotalPages
	d.HasPrev, d.HasNext = p.HasPrev(), p.HasNext()

	for _, e := range filters.Equalities {
		d.Filters = append(d.Filters, templates.FilterChip{
			Kind:   "equality",
			Column: e.Column,
			Label:  equalityLabel(e),
		})
	}
	for _, sf := range filters.Searches {
		label := fmt.Sprintf("%s contains %q", sf.Column, sf.Term)
		if sf.CaseInsensitive {
			label += " (any case)"
		}
		d.Filters = append(d.Filters, templates.FilterChip{Kind: "search", Column: sf.Column, Label: label})
	}
	for _, dv := range view.State.Derivations {
		d.Derivations = append(d.Derivations, templates.DerivationChip{Name: dv.Name, Label: dv.String()})
		if warn := view.Stats[dv.Name].Warning(dv.Name); warn != nil {
			d.Notices = append(d.Notices, divByZeroNotice(warn))
		}
	}
	return d, nil
}

func rowSummary(v *core.View) string {
	return fmt.Sprintf("Showing %d of %d records", v.Visible(), v.Total())
}

// divByZeroNotice words a derivation warning for the page, e.g. "Ratio: 2 rows
// divide by zero and show NaN. Filter out zero divisors if NaN is not wanted
// (ARITH002)."
func divByZeroNotice(warn error) string {
	msg := core.MapError(warn)
	var dz *core.DivisionByZeroError
	if !errors.As(warn, &dz) {
		return core.FormatUserError(warn)
	}
	rows := fmt.Sprintf("%d rows divide by zero and show NaN", dz.Rows)
	if dz.Rows == 1 {
		rows = "1 row divides by zero and shows NaN"
	}
	return fmt.Sprintf("%s: %s. %s (%s).", dz.Column, rows, msg.Action, msg.Code)
}

func equalityLabel(e core.EqualityFilter) string {
	if len(e.Values) == 1 {
		return fmt.Sprintf("%s = %s", e.Column, e.Values[0])
	}
	return fmt.Sprintf("%s is one of %d values", e.Column, len(e.Values))
}

func columnClass(c core.Column) string {
	class := "col-text"
	if c.IsNumeric() {
		class = "col-num"
	}
	if c.Derived {
		class += " col-derived"
	}
	return class
}

func cellClass(c core.Column, v core.Value) string {
	switch {
	case v.IsMissing():
		return "missing"
	case v.IsNaN():
		return "nan"
	case c.IsNumeric():
		return "num"
	default:
		return ""
	}
}

// statsData builds the summary part of the statistics page.
func (s *Server) statsData(sess *core.Session) (templates.StatsData, error) {
	var d templates.StatsData
	view, err := sess.View()
	if errors.Is(err, core.ErrNoTable) {
		return d, nil
	}
	if err != nil {
		return d, err
	}
	d.Loaded = true
	d.RowSummary = rowSummary(view)
	for _, c := range view.Table.Columns() {
		if c.IsNumeric() {
			d.NumericColumns = append(d.NumericColumns, c.Name)
		}
	}
	summaries, err := s.service.Summaries(sess)
	if err != nil {
		return d, err
	}
	for _, cs := range summaries {
		row := templates.SummaryRow{
			Column:  cs.Column,
			Count:   strconv.Itoa(cs.Count),
			Missing: strconv.Itoa(cs.Missing),
			NaN:     strconv.Itoa(cs.NaN),
			Std:     "-",
		}
		if cs.Count > 0 {
			row.Sum = cs.Sum.String()
			row.Mean = cs.Mean.Round(6).String()
			row.Min = cs.Min.String()
			row.Max = cs.Max.String()
		}
		if cs.Std != nil {
			row.Std = formatFloat(*cs.Std)
		}
		d.Summaries = append(d.Summaries, row)
	}
	return d, nil
}

func capabilityView(rep *core.CapabilityReport) *templates.CapabilityView {
	v := &templates.CapabilityView{
		N:         strconv.Itoa(rep.N),
		Mean:      formatFloat(rep.Mean),
		Std:       formatFloat(rep.Std),
		Tolerance: formatFloat(rep.Tolerance),
		Cp:        formatFloat(rep.Cp),
		Cpk:       formatFloat(rep.Cpk),
		GageRR:    formatPercent(rep.GageRR),
	}
	for _, sc := range rep.Scenarios {
		row := scenarioRow(sc)
		if sc.Name == rep.Recommended.Name {
			row.Class = "recommended"
		}
		v.Scenarios = append(v.Scenarios, row)
	}
	v.Recommended = scenarioRow(rep.Recommended)
	if f := rep.Forecast; f != nil {
		v.Forecast = &templates.ScenarioRow{
			Name:      "Proposed",
			Tolerance: formatFloat(f.Tolerance),
			LSL:       formatFloat(rep.Mean - f.Tolerance/2),
			USL:       formatFloat(rep.Mean + f.Tolerance/2),
			Cp:        formatFloat(f.Cp),
			GageRR:    formatPercent(f.GageRR),
			Class:     "forecast",
		}
	}
	return v
}

func scenarioRow(sc core.Scenario) templates.ScenarioRow {
	return templates.ScenarioRow{
		Name:      sc.Name,
		Tolerance: formatFloat(sc.Tolerance),
		LSL:       formatFloat(sc.LSL),
		USL:       formatFloat(sc.USL),
		Cp:        formatFloat(sc.Cp),
		GageRR:    formatPercent(sc.GageRR),
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "∞"
	case math.IsInf(f, -1):
		return "-∞"
	case math.IsNaN(f):
		return core.NaNText
	}
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func formatPercent(p *float64) string {
	if p == nil {
		return ""
	}
	return formatFloat(*p) + " %"
}
