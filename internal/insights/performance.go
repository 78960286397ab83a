package insights

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

// Strength/weakness bands for performance summaries.
const (
	strengthRate = 0.8
	weaknessRate = 0.6
)

type TopicScore struct {
	Topic       string  `json:"topic"`
	SuccessRate float64 `json:"success_rate"`
	Responses   int     `json:"responses"`
	MaxAttempts int     `json:"max_attempts"`
	LastCorrect bool    `json:"last_correct"`
}

type PerformanceSummary struct {
	OverallScore   float64       `json:"overall_score"`   // percent of points earned on completed items
	CompletionRate float64       `json:"completion_rate"` // percent of due work completed
	CompletedItems int           `json:"completed_items"`
	TotalItems     int           `json:"total_items"`
	Strengths      []TopicScore  `json:"strengths"`
	Weaknesses     []TopicScore  `json:"weaknesses"`
	NextDue        *UpcomingItem `json:"next_due,omitempty"`
	Summary        string        `json:"summary"`
	Advice         []string      `json:"advice"`
}

// AnalyzePerformance summarizes items as strengths, weaknesses and prose.
// It shares the gap aggregation pass but applies its own bands.
func AnalyzePerformance(items []coursework.CourseItem, now time.Time) PerformanceSummary {
	sum := PerformanceSummary{
		TotalItems: len(items),
		Strengths:  []TopicScore{},
		Weaknesses: []TopicScore{},
		Advice:     []string{},
	}

	var earned, possible float64
	due := 0
	for _, it := range items {
		if it.Status != coursework.StatusUpcoming {
			due++
		}
		if !it.Completed() {
			continue
		}
		sum.CompletedItems++
		earned += *it.LatestScore
		possible += it.PointsPossible
	}
	if possible > 0 {
		sum.OverallScore = round1(earned / possible * 100)
	}
	if due > 0 {
		sum.CompletionRate = round1(float64(min(sum.CompletedItems, due)) / float64(due) * 100)
	}

	aggregate(items).each(func(p *topicPerformance) {
		rate := p.successRate()
		ts := TopicScore{
			Topic:       p.topic,
			SuccessRate: round1(rate * 100),
			Responses:   p.correct + p.incorrect,
			MaxAttempts: p.maxAttempts,
			LastCorrect: p.lastCorrect,
		}
		if rate >= strengthRate && p.lastCorrect {
			sum.Strengths = append(sum.Strengths, ts)
		}
		if rate < weaknessRate || !p.lastCorrect {
			sum.Weaknesses = append(sum.Weaknesses, ts)
		}
	})
	sort.SliceStable(sum.Strengths, func(i, j int) bool {
		return sum.Strengths[i].SuccessRate > sum.Strengths[j].SuccessRate
	})
	sort.SliceStable(sum.Weaknesses, func(i, j int) bool {
		return sum.Weaknesses[i].SuccessRate < sum.Weaknesses[j].SuccessRate
	})

	if upcoming := IdentifyUpcomingTopics(items, now); len(upcoming) > 0 {
		next := upcoming[0].RelatedItems[0]
		sum.NextDue = &next
	}

	sum.Summary = summaryText(sum)
	sum.Advice = adviceText(sum, now)
	return sum
}

func summaryText(s PerformanceSummary) string {
	if s.CompletedItems == 0 {
		return "No graded work yet. Complete a quiz or assignment to unlock personalized insights."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You have completed %d of %d items with an overall score of %.0f%%. ",
		s.CompletedItems, s.TotalItems, s.OverallScore)
	switch {
	case s.OverallScore >= 90:
		b.WriteString("Excellent work, you are mastering this material.")
	case s.OverallScore >= 80:
		b.WriteString("Solid performance with a few areas to polish.")
	case s.OverallScore >= 70:
		b.WriteString("You are on track, with room to improve.")
	default:
		b.WriteString("Some of this material needs another look.")
	}
	if len(s.Strengths) > 0 {
		fmt.Fprintf(&b, " Strongest topics: %s.", joinTopics(s.Strengths, 3))
	}
	return b.String()
}

func adviceText(s PerformanceSummary, now time.Time) []string {
	out := []string{}
	if len(s.Weaknesses) > 0 {
		out = append(out, fmt.Sprintf("Review %s before moving on.", joinTopics(s.Weaknesses, 3)))
	}
	if s.CompletedItems > 0 && s.CompletionRate < 80 {
		out = append(out, fmt.Sprintf("Catch up on outstanding work: your completion rate is %.0f%%.", s.CompletionRate))
	}
	if s.NextDue != nil {
		days := int(math.Ceil(s.NextDue.DueDate.Sub(now).Hours() / 24))
		when := "within a day"
		if days > 1 {
			when = fmt.Sprintf("in %d days", days)
		}
		out = append(out, fmt.Sprintf("Next up: %s is due %s (%s). Start preparing now.",
			s.NextDue.Title, when, s.NextDue.DueDate.Format("Jan 2")))
	}
	if len(out) == 0 && s.CompletedItems > 0 {
		out = append(out, "Keep practicing with flashcards to keep your strongest topics fresh.")
	}
	return out
}

func joinTopics(ts []TopicScore, limit int) string {
	names := make([]string, 0, limit)
	for i, t := range ts {
		if i == limit {
			break
		}
		names = append(names, t.Topic)
	}
	return strings.Join(names, ", ")
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
