package coursework

import (
	"context"
	"fmt"
	"strings"

	"github.com/mind-engage/studycoach/internal/grading"
)

// gradeQuestions fills IsCorrect for questions recorded without a verdict.
func gradeQuestions(ctx context.Context, g grading.Grader, qs []Question) error {
	for i := range qs {
		if qs[i].IsCorrect != nil {
			continue
		}
		if g == nil {
			return fmt.Errorf("%w: question %d has no verdict and no grader is configured", ErrInvalidItem, i)
		}
		ok, err := g.Correct(ctx, grading.Answer{
			Kind:  qs[i].AnswerKind,
			Key:   grading.SplitKey(qs[i].CorrectAnswer),
			Given: qs[i].StudentAnswer,
		})
		if err != nil {
			return fmt.Errorf("%w: question %d: %v", ErrInvalidItem, i, err)
		}
		qs[i].IsCorrect = &ok
	}
	return nil
}

func validateItem(it CourseItem) error {
	switch {
	case strings.TrimSpace(it.StudentID) == "":
		return fmt.Errorf("%w: student_id required", ErrInvalidItem)
	case strings.TrimSpace(it.CourseID) == "":
		return fmt.Errorf("%w: course_id required", ErrInvalidItem)
	case strings.TrimSpace(it.Title) == "":
		return fmt.Errorf("%w: title required", ErrInvalidItem)
	case it.PointsPossible < 0:
		return fmt.Errorf("%w: points_possible must not be negative", ErrInvalidItem)
	}
	switch it.Type {
	case TypeQuiz, TypeAssignment, TypeExam:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidItem, it.Type)
	}
	switch it.Status {
	case StatusUpcoming, StatusSubmitted, StatusGraded, StatusMissing:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalidItem, it.Status)
	}
	return nil
}

// normalizeAttempts numbers attempts that arrive without a number and
// derives the item's counters from its attempt list.
func normalizeAttempts(it *CourseItem) {
	for i := range it.Attempts {
		if it.Attempts[i].AttemptNo <= 0 {
			it.Attempts[i].AttemptNo = i + 1
		}
	}
	if n := len(it.Attempts); n > it.AttemptCount {
		it.AttemptCount = n
	}
	if it.LatestScore == nil {
		if latest, ok := it.LatestAttempt(); ok && latest.Score != nil {
			s := *latest.Score
			it.LatestScore = &s
		}
	}
}
