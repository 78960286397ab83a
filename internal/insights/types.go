// Package insights derives learning gaps, upcoming study topics and
// performance summaries from a student's graded coursework.
//
// Everything here is pure computation over already-loaded items: results
// are recomputed on every call and never persisted.
package insights

import (
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// severity orders confidences for sorting: low first.
func (c Confidence) severity() int {
	switch c {
	case ConfidenceLow:
		return 0
	case ConfidenceMedium:
		return 1
	default:
		return 2
	}
}

// ItemRef points at one course item that contributed to a topic.
type ItemRef struct {
	ID               string              `json:"id"`
	Type             coursework.ItemType `json:"type"`
	Title            string              `json:"title"`
	Attempts         int                 `json:"attempts"`
	InitiallyCorrect bool                `json:"initially_correct"`
	Resolved         bool                `json:"resolved"`
}

type LearningGap struct {
	Topic             string     `json:"topic"`
	Confidence        Confidence `json:"confidence"`
	RecommendedReview bool       `json:"recommended_review"`
	RelatedItems      []ItemRef  `json:"related_items"`
	LastPracticed     time.Time  `json:"last_practiced"`
}

type UpcomingItem struct {
	ID                  string              `json:"id"`
	Type                coursework.ItemType `json:"type"`
	Title               string              `json:"title"`
	DueDate             time.Time           `json:"due_date"`
	PreStudyRecommended bool                `json:"pre_study_recommended"`
}

type UpcomingTopic struct {
	Topic               string         `json:"topic"`
	RelatedItems        []UpcomingItem `json:"related_items"`
	PreStudyRecommended bool           `json:"pre_study_recommended"`
}

// GapStatus separates "nothing to report" from "nothing to classify".
type GapStatus string

const (
	StatusInsufficientData GapStatus = "insufficient_data"
	StatusNoGaps           GapStatus = "no_gaps"
	StatusGapsFound        GapStatus = "gaps_found"
)

type CourseLearningGaps struct {
	CourseID       string          `json:"course_id"`
	Status         GapStatus       `json:"status"`
	Gaps           []LearningGap   `json:"gaps"`
	UpcomingTopics []UpcomingTopic `json:"upcoming_topics"`
}
