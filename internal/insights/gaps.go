package insights

import (
	"sort"
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

// Confidence bands for learning gaps. These are deliberately independent
// of the strength/weakness bands used by performance summaries.
const (
	highConfidenceRate   = 0.8
	mediumConfidenceRate = 0.6
)

func classify(p *topicPerformance) Confidence {
	rate := p.successRate()
	switch {
	case rate >= highConfidenceRate && p.lastCorrect:
		return ConfidenceHigh
	case rate >= mediumConfidenceRate:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// IdentifyGaps classifies every topic found in the completed items and
// returns those worth surfacing: anything below high confidence, plus
// high-confidence topics the student got wrong on the first try.
func IdentifyGaps(items []coursework.CourseItem) []LearningGap {
	gaps, _ := identifyGaps(aggregate(items))
	return gaps
}

func identifyGaps(agg *aggregation) ([]LearningGap, int) {
	gaps := []LearningGap{}
	agg.each(func(p *topicPerformance) {
		conf := classify(p)
		if conf == ConfidenceHigh && p.initiallyCorrect {
			return
		}
		gaps = append(gaps, LearningGap{
			Topic:             p.topic,
			Confidence:        conf,
			RecommendedReview: conf != ConfidenceHigh || !p.lastCorrect,
			RelatedItems:      p.refs(),
			LastPracticed:     p.lastPracticed,
		})
	})
	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].RecommendedReview != gaps[j].RecommendedReview {
			return gaps[i].RecommendedReview
		}
		return gaps[i].Confidence.severity() < gaps[j].Confidence.severity()
	})
	return gaps, agg.classified
}

// IdentifyUpcomingTopics groups items that are still upcoming and due after
// now by topic. Items inside a group are ordered by due date, and groups by
// their earliest item.
func IdentifyUpcomingTopics(items []coursework.CourseItem, now time.Time) []UpcomingTopic {
	groups := map[string]*UpcomingTopic{}
	order := []string{}
	for _, it := range items {
		if it.Status != coursework.StatusUpcoming || it.DueDate == nil || !it.DueDate.After(now) {
			continue
		}
		topic, ok := ExtractTopicFromTitle(it.Title)
		if !ok {
			topic = it.Title
		}
		g, ok := groups[topic]
		if !ok {
			g = &UpcomingTopic{Topic: topic, PreStudyRecommended: true}
			groups[topic] = g
			order = append(order, topic)
		}
		g.RelatedItems = append(g.RelatedItems, UpcomingItem{
			ID:                  it.ID,
			Type:                it.Type,
			Title:               it.Title,
			DueDate:             *it.DueDate,
			PreStudyRecommended: true,
		})
	}

	out := make([]UpcomingTopic, 0, len(order))
	for _, topic := range order {
		g := groups[topic]
		sort.SliceStable(g.RelatedItems, func(i, j int) bool {
			return g.RelatedItems[i].DueDate.Before(g.RelatedItems[j].DueDate)
		})
		out = append(out, *g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelatedItems[0].DueDate.Before(out[j].RelatedItems[0].DueDate)
	})
	return out
}

// DetectLearningGaps runs gap and upcoming-topic detection per course,
// in the order courses first appear in items.
func DetectLearningGaps(items []coursework.CourseItem, now time.Time) []CourseLearningGaps {
	byCourse := map[string][]coursework.CourseItem{}
	courses := []string{}
	for _, it := range items {
		if _, ok := byCourse[it.CourseID]; !ok {
			courses = append(courses, it.CourseID)
		}
		byCourse[it.CourseID] = append(byCourse[it.CourseID], it)
	}

	out := make([]CourseLearningGaps, 0, len(courses))
	for _, courseID := range courses {
		courseItems := byCourse[courseID]
		gaps, classified := identifyGaps(aggregate(courseItems))
		status := StatusGapsFound
		switch {
		case classified == 0:
			status = StatusInsufficientData
		case len(gaps) == 0:
			status = StatusNoGaps
		}
		out = append(out, CourseLearningGaps{
			CourseID:       courseID,
			Status:         status,
			Gaps:           gaps,
			UpcomingTopics: IdentifyUpcomingTopics(courseItems, now),
		})
	}
	return out
}
