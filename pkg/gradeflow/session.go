package gradeflow

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

var (
	// ErrNoStudentSelected indicates an operation that needs a selected
	// student ran before SelectStudent.
	ErrNoStudentSelected = errors.New("no student selected")
	// ErrNoUploadedSubmission indicates grading was requested before any
	// file finished uploading for the selected student.
	ErrNoUploadedSubmission = errors.New("no uploaded submission for selected student")
	// ErrSessionBusy indicates the selected student cannot change while an
	// upload or grading attempt is in flight.
	ErrSessionBusy = errors.New("session has work in flight")
)

// SessionClient is everything a grading session needs from the server.
// *gradeapi.Client satisfies it.
type SessionClient interface {
	SubmissionGateway
	GradingTrigger
	ReviewSubmitter
	GetThreshold(ctx context.Context) (gradeapi.Threshold, error)
}

// Session drives one exam's grading workflow: pick a student, upload their
// pages, trigger grading, record the outcome. Everything it holds is
// discarded on teardown; re-fetching from the server rebuilds the same view.
type Session struct {
	mu       sync.Mutex
	examID   string
	roster   []RosterStudent
	selected *RosterStudent

	client       SessionClient
	previews     PreviewStore
	queue        *UploadQueue
	orchestrator *Orchestrator
	ledger       *Ledger
	queueOpts    []QueueOption
	logger       zerolog.Logger
}

// NewSession opens a grading session for one exam template and roster.
func NewSession(examID string, roster []RosterStudent, client SessionClient, previews PreviewStore, logger zerolog.Logger, queueOpts ...QueueOption) *Session {
	if previews == nil {
		previews = NewMemoryPreviewStore()
	}

	sessionLogger := logger.With().Str("component", "grading_session").Str("exam_id", examID).Logger()

	return &Session{
		examID:       examID,
		roster:       append([]RosterStudent(nil), roster...),
		client:       client,
		previews:     previews,
		orchestrator: NewOrchestrator(client, sessionLogger),
		ledger:       NewLedger(),
		queueOpts:    queueOpts,
		logger:       sessionLogger,
	}
}

// SelectStudent switches the session to a roster student, replacing the
// upload queue with a fresh one bound to that student. Switching is refused
// while an upload or grading attempt is in flight.
func (s *Session) SelectStudent(studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue != nil && s.queue.IsUploading() {
		return ErrSessionBusy
	}
	if s.orchestrator.State().Phase == PhaseLoading {
		return ErrSessionBusy
	}

	var student *RosterStudent
	for i := range s.roster {
		if s.roster[i].ID == studentID {
			student = &s.roster[i]
			break
		}
	}
	if student == nil {
		return ErrFileNotFound
	}

	if s.queue != nil {
		s.queue.ClearAll()
	}
	s.orchestrator.Reset()

	s.selected = student
	s.queue = NewUploadQueue(s.examID, student.ID, s.client, s.previews, s.logger, s.queueOpts...)
	s.logger.Info().Str("student_id", student.ID).Msg("student selected")
	return nil
}

// Selected returns the currently selected roster student.
func (s *Session) Selected() (RosterStudent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selected == nil {
		return RosterStudent{}, false
	}
	return *s.selected, true
}

// Queue returns the selected student's upload queue.
func (s *Session) Queue() (*UploadQueue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue == nil {
		return nil, ErrNoStudentSelected
	}
	return s.queue, nil
}

// Orchestrator returns the session's grading phase machine.
func (s *Session) Orchestrator() *Orchestrator {
	return s.orchestrator
}

// Ledger returns the session's graded-student ledger.
func (s *Session) Ledger() *Ledger {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger
}

// Roster returns the session roster in its original order.
func (s *Session) Roster() []RosterStudent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RosterStudent(nil), s.roster...)
}

// GradeUploaded triggers grading for the selected student's first completed
// upload and, on success, records the outcome in the ledger. The submission
// id comes from the upload result, never from client-side bookkeeping.
func (s *Session) GradeUploaded(ctx context.Context) error {
	s.mu.Lock()
	if s.queue == nil || s.selected == nil {
		s.mu.Unlock()
		return ErrNoStudentSelected
	}
	student := *s.selected
	queue := s.queue
	s.mu.Unlock()

	submissionID := ""
	for _, item := range queue.Items() {
		if item.Status == UploadDone && item.Result != nil {
			submissionID = item.Result.SubmissionID
			break
		}
	}
	if submissionID == "" {
		return ErrNoUploadedSubmission
	}

	if err := s.orchestrator.Trigger(ctx, submissionID); err != nil {
		return err
	}

	state := s.orchestrator.State()
	if state.Phase == PhaseSuccess {
		s.recordOutcome(student, state.Result, state.Questions)
	}
	return nil
}

// RecordReview replaces the selected student's ledger entry with a finalized
// review outcome.
func (s *Session) RecordReview(student RosterStudent, result gradeapi.GradingResult) {
	questions, err := gradeapi.DecodeQuestionScores(result.QuestionScores)
	if err != nil {
		s.logger.Warn().Str("grade_id", result.GradeID).Msg("malformed question scores in reviewed result")
		questions = nil
	}
	s.recordOutcome(student, result, questions)
}

// OpenWorkbench opens a review workbench for a flagged result.
func (s *Session) OpenWorkbench(result gradeapi.GradingResult) *Workbench {
	return NewWorkbench(result, s.client, s.logger)
}

// Threshold fetches the teacher's effective confidence threshold for display.
func (s *Session) Threshold(ctx context.Context) (gradeapi.Threshold, error) {
	return s.client.GetThreshold(ctx)
}

// Teardown releases every preview and drops all session state. The server
// holds the durable copy of everything recorded here.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue != nil {
		s.queue.ClearAll()
		s.queue = nil
	}
	s.orchestrator.Reset()
	s.ledger = NewLedger()
	s.selected = nil
	s.logger.Info().Msg("session torn down")
}

func (s *Session) recordOutcome(student RosterStudent, result gradeapi.GradingResult, questions []gradeapi.QuestionScore) {
	record := GradedStudentRecord{
		StudentID:       student.ID,
		StudentName:     student.Name,
		SubmissionID:    result.SubmissionID,
		GradeID:         result.GradeID,
		ConfidenceScore: result.ConfidenceScore,
		NeedsReview:     result.NeedsReview,
		GradedAt:        time.Now(),
	}

	for _, q := range questions {
		record.TotalAdjusted += q.PointsAwarded
		record.TotalAvailable += q.PointsAvailable
		record.Scores = append(record.Scores, SavedScore{
			QuestionNumber: q.QuestionNumber,
			AdjustedPoints: q.PointsAwarded,
		})
	}

	s.Ledger().Save(record)
}
