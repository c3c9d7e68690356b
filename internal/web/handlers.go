package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/csvexplorer/internal/core"
	"github.com/JonMunkholm/csvexplorer/internal/logging"
	"github.com/JonMunkholm/csvexplorer/internal/web/templates"
)

// exportStampLayout timestamps download names, e.g. sales_20240301_140509.csv.
const exportStampLayout = "20060102_150405"

// handleExplorer renders the current view.
func (s *Server) handleExplorer(w http.ResponseWriter, r *http.Request) {
	s.renderExplorer(w, r, parseIntParam(r, "page", 1), nil)
}

// handleUpload replaces the session's table with the uploaded file, starting
// a session on the first successful upload. A failed upload leaves the
// previous table and view in place.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.MaxFileSize()
	// Multipart framing adds a little on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			err = fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		} else {
			err = fmt.Errorf("%w: %v", core.ErrNoFile, err)
		}
		s.actionFailed(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.actionFailed(w, r, core.ErrNoFile)
		return
	}
	defer file.Close()

	if header.Size > maxSize {
		s.actionFailed(w, r, fmt.Errorf("%w: %d bytes, limit is %d", core.ErrFileTooLarge, header.Size, maxSize))
		return
	}

	sess, created, err := s.sessionForUpload(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}

	view, err := s.service.Upload(r.Context(), sess, header.Filename, file)
	if err != nil {
		if created {
			s.service.Sessions().Delete(sess.ID)
		}
		s.actionFailed(w, r, err)
		return
	}
	if created {
		r = s.keepSession(w, r, sess)
	}
	s.actionDone(w, r, view)
}

func (s *Server) handleSetSearch(w http.ResponseWriter, r *http.Request) {
	f, err := parseSearchForm(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	view, err := session(r).SetSearch(f.Column, f.Term, f.CaseInsensitive)
	s.finishAction(w, r, view, err)
}

func (s *Server) handleSetEquality(w http.ResponseWriter, r *http.Request) {
	f, err := parseEqualityForm(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	view, err := session(r).SetEquality(f.Column, f.Values)
	s.finishAction(w, r, view, err)
}

// handleClearFilters clears one filter (kind and column given) or all of them.
func (s *Server) handleClearFilters(w http.ResponseWriter, r *http.Request) {
	f, err := parseClearForm(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	sess := session(r)
	var view *core.View
	switch f.Kind {
	case "equality":
		view, err = sess.ClearEquality(f.Column)
	case "search":
		view, err = sess.ClearSearch(f.Column)
	default:
		view, err = sess.ClearFilters()
	}
	s.finishAction(w, r, view, err)
}

func (s *Server) handleAddDerivation(w http.ResponseWriter, r *http.Request) {
	d, err := parseDeriveForm(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	sess := session(r)
	view, stats, err := sess.AddDerivation(d)
	if err == nil {
		if warn := stats.Warning(d.Name); warn != nil {
			logging.WithFields(r.Context(), "session", sess.ID, "column", d.Name).
				Info("derived column has division by zero", "error", warn)
		}
	}
	s.finishAction(w, r, view, err)
}

func (s *Server) handleRemoveDerivation(w http.ResponseWriter, r *http.Request) {
	f, err := parseRemoveDerivationForm(r)
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	view, err := session(r).RemoveDerivation(f.Name)
	s.finishAction(w, r, view, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	view, err := session(r).Reset()
	s.finishAction(w, r, view, err)
}

// handleExport streams the current view in the format named by the route.
func (s *Server) handleExport(format core.FileFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := session(r)
		snap := sess.Snapshot()
		if snap.State == core.StateEmpty {
			s.actionFailed(w, r, core.ErrNoTable)
			return
		}

		name := core.ExportName(snap.FileName, time.Now().Format(exportStampLayout), format)
		switch format {
		case core.FormatXLSX:
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		default:
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))

		if err := s.service.Export(sess, w, format); err != nil {
			// Headers are gone once the body has started; log and stop.
			logError(r, err, http.StatusInternalServerError)
		}
	}
}

// handleStats renders column summaries and, when the form was submitted, the
// capability report.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	d, err := s.statsData(sess)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	status := http.StatusOK
	form, rawTol, submitted, err := parseCapabilityQuery(r)
	if submitted {
		d.Form = templates.CapabilityForm{
			Measure:   form.Measure,
			LSL:       form.LSL,
			USL:       form.USL,
			GageRR:    form.GageRR,
			Tolerance: rawTol,
		}
	}
	if submitted && err == nil && d.Loaded {
		var rep *core.CapabilityReport
		rep, err = s.service.Capability(sess, form.input())
		if err == nil {
			d.Capability = capabilityView(rep)
		}
	}
	if err != nil {
		status = statusFor(err)
		info := errorInfo(logError(r, err, status))
		d.Error = &info
	}
	s.render(w, r, status, "Statistics", templates.Stats(d))
}

// apiView is the JSON form of the current view page.
type apiView struct {
	core.SessionSnapshot
	Page        core.Page                   `json:"pagination"`
	Rows        [][]string                  `json:"rows"`
	DeriveStats map[string]core.DeriveStats `json:"derive_stats,omitempty"`
}

func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	view, err := sess.View()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, s.viewJSON(sess, view, parseIntParam(r, "page", 1)))
}

func (s *Server) viewJSON(sess *core.Session, view *core.View, page int) apiView {
	p := view.Table.Page(page, s.cfg.View.PageSize)
	rows := make([][]string, len(p.Rows))
	for i, row := range p.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.Raw
		}
		rows[i] = cells
	}
	return apiView{
		SessionSnapshot: sess.Snapshot(),
		Page:            p,
		Rows:            rows,
		DeriveStats:     view.Stats,
	}
}

func (s *Server) handleAPIColumns(w http.ResponseWriter, r *http.Request) {
	view, err := session(r).View()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": view.Table.Columns()})
}

// handleAPIColumnValues lists the equality-filter choices for one column.
func (s *Server) handleAPIColumnValues(w http.ResponseWriter, r *http.Request) {
	view, err := session(r).View()
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	column := chi.URLParam(r, "column")
	values, truncated, err := view.Full.Distinct(column, s.cfg.View.MaxDistinctValues)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"column":    column,
		"values":    values,
		"truncated": truncated,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.service.Limiter().Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.service.Sessions().Len(),
		"uploads":  status,
	})
}

// finishAction answers a session action with either its error or the new view.
func (s *Server) finishAction(w http.ResponseWriter, r *http.Request, view *core.View, err error) {
	if err != nil {
		s.actionFailed(w, r, err)
		return
	}
	s.actionDone(w, r, view)
}

// actionDone sends browsers back to the explorer and JSON clients the view.
func (s *Server) actionDone(w http.ResponseWriter, r *http.Request, view *core.View) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, s.viewJSON(session(r), view, 1))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// actionFailed shows err above the unchanged view.
func (s *Server) actionFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, core.ErrNoTable) && sessionExpired(r) {
		err = fmt.Errorf("%w: %w", core.ErrSessionNotFound, err)
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// The client went away; nobody is left to render for.
		logging.FromContext(r.Context()).Info("request cancelled", "path", r.URL.Path)
		return
	}
	if wantsJSON(r) {
		status := statusFor(err)
		respondErrorJSON(w, logError(r, err, status), status)
		return
	}
	s.renderExplorer(w, r, 1, err)
}
