package coursework

import "time"

type ItemType string

const (
	TypeQuiz       ItemType = "quiz"
	TypeAssignment ItemType = "assignment"
	TypeExam       ItemType = "exam"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusSubmitted Status = "submitted"
	StatusGraded    Status = "graded"
	StatusMissing   Status = "missing"
)

// Question is one graded question inside a quiz attempt.
// IsCorrect may be left nil on input; it is then graded from the answers.
type Question struct {
	Topic         string `json:"topic"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	StudentAnswer string `json:"student_answer,omitempty"`
	AnswerKind    string `json:"answer_kind,omitempty"` // exact|choice|short_word|numeric
	IsCorrect     *bool  `json:"is_correct,omitempty"`
}

func (q Question) Correct() bool { return q.IsCorrect != nil && *q.IsCorrect }

// Submission is the free-form payload of an assignment attempt.
type Submission struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

type Attempt struct {
	AttemptNo   int         `json:"attempt_no"`
	SubmittedAt time.Time   `json:"submitted_at"`
	Score       *float64    `json:"score"`
	Questions   []Question  `json:"questions,omitempty"`
	Submission  *Submission `json:"submission,omitempty"`
}

type CourseItem struct {
	ID             string     `json:"item_id"`
	StudentID      string     `json:"student_id"`
	CourseID       string     `json:"course_id"`
	Type           ItemType   `json:"type"`
	Title          string     `json:"title"`
	PointsPossible float64    `json:"points_possible"`
	LatestScore    *float64   `json:"latest_score"`
	AttemptCount   int        `json:"attempt_count"`
	DueDate        *time.Time `json:"due_date,omitempty"`
	Status         Status     `json:"status"`
	Attempts       []Attempt  `json:"attempts"`
}

// Completed reports whether the item has a recorded score and at least one attempt.
func (it CourseItem) Completed() bool {
	return it.LatestScore != nil && len(it.Attempts) > 0
}

// FirstAttempt and LatestAttempt pick by attempt number, not slice position.
// Ties go to the later element. Both return false when there are no attempts.
func (it CourseItem) FirstAttempt() (Attempt, bool) {
	if len(it.Attempts) == 0 {
		return Attempt{}, false
	}
	first := it.Attempts[0]
	for _, a := range it.Attempts[1:] {
		if a.AttemptNo < first.AttemptNo {
			first = a
		}
	}
	return first, true
}

func (it CourseItem) LatestAttempt() (Attempt, bool) {
	if len(it.Attempts) == 0 {
		return Attempt{}, false
	}
	latest := it.Attempts[0]
	for _, a := range it.Attempts[1:] {
		if a.AttemptNo >= latest.AttemptNo {
			latest = a
		}
	}
	return latest, true
}

// Attempted returns the larger of the stored counter and the attempts carried.
func (it CourseItem) Attempted() int {
	if len(it.Attempts) > it.AttemptCount {
		return len(it.Attempts)
	}
	return it.AttemptCount
}
