package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// UploadTimeout is the maximum duration for parsing one upload.
var UploadTimeout = 2 * time.Minute

// Recorder receives operational events. The metrics package implements it.
type Recorder interface {
	UploadFinished(format FileFormat, rows int, elapsed time.Duration, err error)
	Action(name string, err error)
	Exported(format FileFormat, rows int)
	SessionsActive(n int)
}

type nopRecorder struct{}

func (nopRecorder) UploadFinished(FileFormat, int, time.Duration, error) {}
func (nopRecorder) Action(string, error)                                 {}
func (nopRecorder) Exported(FileFormat, int)                             {}
func (nopRecorder) SessionsActive(int)                                   {}

// Options configures a Service. Zero values fall back to package defaults.
type Options struct {
	MaxFileSize          int64
	MaxRows              int
	MaxConcurrentUploads int
	MaxUploadWait        time.Duration
	SessionTTL           time.Duration
	MaxSessions          int
	Recorder             Recorder
}

// Service provides the operations the web layer and CLI need on top of
// sessions: size-limited uploads, exports and statistics.
type Service struct {
	sessions *SessionStore
	limiter  *UploadLimiter
	rec      Recorder

	maxFileSize int64
	maxRows     int
}

// NewService creates a new Service instance.
func NewService(opts Options) *Service {
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	maxSize := opts.MaxFileSize
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = MaxRows
	}
	return &Service{
		sessions:    NewSessionStore(opts.SessionTTL, opts.MaxSessions, rec),
		limiter:     NewUploadLimiter(opts.MaxConcurrentUploads, opts.MaxUploadWait),
		rec:         rec,
		maxFileSize: maxSize,
		maxRows:     maxRows,
	}
}

// Sessions returns the session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// Limiter returns the upload limiter.
func (s *Service) Limiter() *UploadLimiter { return s.limiter }

// MaxFileSize returns the upload size limit in bytes.
func (s *Service) MaxFileSize() int64 { return s.maxFileSize }

// Upload parses a file and loads it into sess, resetting its filters and
// derived columns. If anything fails the session keeps its previous table.
func (s *Service) Upload(ctx context.Context, sess *Session, name string, r io.Reader) (*View, error) {
	start := time.Now()
	format, err := DetectFormat(name)
	if err != nil {
		s.rec.UploadFinished("", 0, time.Since(start), err)
		return nil, err
	}

	view, err := s.upload(ctx, sess, name, format, r)
	rows := 0
	if view != nil {
		rows = view.Total()
	}
	s.rec.UploadFinished(format, rows, time.Since(start), err)
	return view, err
}

func (s *Service) upload(ctx context.Context, sess *Session, name string, format FileFormat, r io.Reader) (*View, error) {
	ctx, cancel := context.WithTimeout(ctx, UploadTimeout)
	defer cancel()

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, s.maxFileSize)
	}
	if len(data) == 0 {
		return nil, &ParseError{Err: ErrEmptyFile}
	}

	opts := ParseOptions{Name: name, MaxRows: s.maxRows}
	var t *Table
	if format == FormatXLSX {
		t, err = ParseXLSX(bytes.NewReader(data), opts)
	} else {
		t, err = ParseCSV(bytes.NewReader(data), opts)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	view, err := sess.Load(t)
	if err != nil {
		return nil, err
	}
	slog.Debug("table loaded",
		"session", sess.ID,
		"file", name,
		"rows", t.Len(),
		"columns", t.Width(),
	)
	return view, nil
}

// Export writes the session's current view.
func (s *Service) Export(sess *Session, w io.Writer, format FileFormat) error {
	view, err := sess.View()
	if err != nil {
		return err
	}
	if err := Export(w, view.Table, format); err != nil {
		return err
	}
	s.rec.Exported(format, view.Visible())
	return nil
}

// Summaries returns numeric summaries of the session's visible rows.
func (s *Service) Summaries(sess *Session) ([]ColumnSummary, error) {
	view, err := sess.View()
	if err != nil {
		return nil, err
	}
	return Summarize(view.Table), nil
}

// Capability analyses the session's visible rows.
func (s *Service) Capability(sess *Session, in CapabilityInput) (*CapabilityReport, error) {
	view, err := sess.View()
	if err != nil {
		return nil, err
	}
	rep, err := Capability(view.Table, in)
	s.rec.Action("capability", err)
	return rep, err
}

// Shutdown waits for in-flight uploads to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
