package gradeapi

import "io"

// ProgressFunc receives upload progress as an integer percentage. Values are
// monotonically non-decreasing and reach exactly 100 when the transfer
// completes.
type ProgressFunc func(percent int)

// progressReader wraps a reader and reports cumulative read progress against
// a known total. Duplicate and regressing percentages are suppressed so
// observers only see forward movement.
type progressReader struct {
	inner    io.Reader
	total    int64
	read     int64
	lastPct  int
	progress ProgressFunc
}

func newProgressReader(inner io.Reader, total int64, progress ProgressFunc) *progressReader {
	return &progressReader{inner: inner, total: total, lastPct: -1, progress: progress}
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.read += int64(n)
		r.report()
	}
	return n, err
}

func (r *progressReader) report() {
	if r.progress == nil || r.total <= 0 {
		return
	}

	pct := int(r.read * 100 / r.total)
	if pct > 100 {
		pct = 100
	}
	if pct > r.lastPct {
		r.lastPct = pct
		r.progress(pct)
	}
}

// finish forces a terminal 100% notification after a successful transfer.
func (r *progressReader) finish() {
	if r.progress == nil {
		return
	}
	if r.lastPct < 100 {
		r.lastPct = 100
		r.progress(100)
	}
}
