package gradeflow

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// FilterMode narrows the ledger view.
type FilterMode string

const (
	FilterAll            FilterMode = "all"
	FilterNeedsReview    FilterMode = "needs-review"
	FilterHighConfidence FilterMode = "high-confidence"
)

// SortMode orders the ledger view.
type SortMode string

const (
	SortNameAsc        SortMode = "name-asc"
	SortScoreDesc      SortMode = "score-desc"
	SortConfidenceDesc SortMode = "confidence-desc"
)

// SavedScore is one question's teacher-facing points in a graded record.
type SavedScore struct {
	QuestionNumber int
	AdjustedPoints float64
}

// GradedStudentRecord is one student's grading outcome for the session.
type GradedStudentRecord struct {
	StudentID       string
	StudentName     string
	SubmissionID    string
	GradeID         string
	TotalAdjusted   float64
	TotalAvailable  float64
	ConfidenceScore float64
	NeedsReview     bool
	Scores          []SavedScore
	GradedAt        time.Time
}

// scoreRatio is the adjusted/available fraction used by score sorting. A
// record with no available points sorts as zero rather than dividing by it.
func (r GradedStudentRecord) scoreRatio() float64 {
	if r.TotalAvailable <= 0 {
		return 0
	}
	return r.TotalAdjusted / r.TotalAvailable
}

// Ledger is the in-session record of graded students: an insertion-ordered
// mapping of studentID to their latest grading outcome. Re-grading a student
// replaces the record in place; the ledger never holds two entries for one
// student. All state is session-local, the server remains the system of
// record.
type Ledger struct {
	mu      sync.Mutex
	order   []string
	records map[string]GradedStudentRecord
}

// NewLedger constructs an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{records: make(map[string]GradedStudentRecord)}
}

// Save records a student's outcome. A student graded earlier keeps their
// original position; only the record is replaced.
func (l *Ledger) Save(record GradedStudentRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[record.StudentID]; !exists {
		l.order = append(l.order, record.StudentID)
	}
	l.records[record.StudentID] = record
}

// Get returns the record for a student, if graded this session.
func (l *Ledger) Get(studentID string) (GradedStudentRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.records[studentID]
	return record, ok
}

// Remove drops a student's record, freeing them for a clean re-grade.
func (l *Ledger) Remove(studentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.records[studentID]; !exists {
		return
	}
	delete(l.records, studentID)
	for i, id := range l.order {
		if id == studentID {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Len reports how many students have been graded this session.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Records returns the graded students under the given filter and sort. The
// default view (FilterAll, SortNameAsc) lists everyone alphabetically.
func (l *Ledger) Records(filter FilterMode, sortMode SortMode) []GradedStudentRecord {
	l.mu.Lock()
	out := make([]GradedStudentRecord, 0, len(l.order))
	for _, id := range l.order {
		record := l.records[id]
		if matchesFilter(record, filter) {
			out = append(out, record)
		}
	}
	l.mu.Unlock()

	switch sortMode {
	case SortScoreDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].scoreRatio() > out[j].scoreRatio()
		})
	case SortConfidenceDesc:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].ConfidenceScore > out[j].ConfidenceScore
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].StudentName) < strings.ToLower(out[j].StudentName)
		})
	}

	return out
}

func matchesFilter(record GradedStudentRecord, filter FilterMode) bool {
	switch filter {
	case FilterNeedsReview:
		return record.NeedsReview
	case FilterHighConfidence:
		return record.ConfidenceScore >= HighConfidenceFloor
	default:
		return true
	}
}

// RosterStudent identifies one student on the session's roster.
type RosterStudent struct {
	ID   string
	Name string
}

// SessionProgress summarizes grading progress against a roster.
type SessionProgress struct {
	Graded int
	Total  int
}

// Progress reports how many of the roster's students are graded.
func (l *Ledger) Progress(roster []RosterStudent) SessionProgress {
	l.mu.Lock()
	defer l.mu.Unlock()

	progress := SessionProgress{Total: len(roster)}
	for _, student := range roster {
		if _, ok := l.records[student.ID]; ok {
			progress.Graded++
		}
	}
	return progress
}

// Partition splits a roster into graded records and not-yet-graded students,
// both in roster order.
func (l *Ledger) Partition(roster []RosterStudent) (graded []GradedStudentRecord, ungraded []RosterStudent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, student := range roster {
		if record, ok := l.records[student.ID]; ok {
			graded = append(graded, record)
		} else {
			ungraded = append(ungraded, student)
		}
	}
	return graded, ungraded
}
