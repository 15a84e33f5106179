package ai

import "context"

// QuestionInput contains the artefacts needed to grade one handwritten
// answer: the scanned submission plus the rubric entry for the question.
type QuestionInput struct {
	ImageURL        string
	QuestionNumber  int
	QuestionText    string
	ExpectedAnswer  string
	PointsAvailable float64
	Subject         string
}

// QuestionGrade is the structured judgment returned by the AI grader for
// one question. Confidence is the model's raw 0.0-1.0 self-assessment.
type QuestionGrade struct {
	PointsAwarded float64                `json:"pointsAwarded"`
	Confidence    float64                `json:"confidence"`
	Illegible     bool                   `json:"illegible"`
	Feedback      string                 `json:"feedback"`
	Raw           map[string]interface{} `json:"raw,omitempty"`
}

// Grader describes an AI model capable of reading handwriting and scoring
// an answer against a rubric.
type Grader interface {
	GradeQuestion(ctx context.Context, input QuestionInput) (QuestionGrade, error)
}
