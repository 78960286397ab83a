package insights

import (
	"strings"
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

// passingRatio is the score share at which a question-less submission counts as correct.
const passingRatio = 0.8

// topicPerformance accumulates every signal seen for one topic.
type topicPerformance struct {
	topic            string
	correct          int
	incorrect        int
	initiallyCorrect bool
	lastCorrect      bool
	maxAttempts      int
	lastPracticed    time.Time
	items            map[string]*ItemRef
	itemOrder        []string
}

func (p *topicPerformance) successRate() float64 {
	total := p.correct + p.incorrect
	if total == 0 {
		return 0
	}
	return float64(p.correct) / float64(total)
}

func (p *topicPerformance) observe(it coursework.CourseItem, latest coursework.Attempt, initially, last bool) {
	if last {
		p.correct++
	} else {
		p.incorrect++
	}
	p.initiallyCorrect = p.initiallyCorrect && initially
	p.lastCorrect = p.lastCorrect && last
	p.maxAttempts = max(p.maxAttempts, it.Attempted())
	if latest.SubmittedAt.After(p.lastPracticed) {
		p.lastPracticed = latest.SubmittedAt
	}

	if ref, ok := p.items[it.ID]; ok {
		ref.InitiallyCorrect = ref.InitiallyCorrect && initially
		ref.Resolved = ref.Resolved && last
		return
	}
	p.items[it.ID] = &ItemRef{
		ID:               it.ID,
		Type:             it.Type,
		Title:            it.Title,
		Attempts:         it.Attempted(),
		InitiallyCorrect: initially,
		Resolved:         last,
	}
	p.itemOrder = append(p.itemOrder, it.ID)
}

func (p *topicPerformance) refs() []ItemRef {
	out := make([]ItemRef, 0, len(p.itemOrder))
	for _, id := range p.itemOrder {
		out = append(out, *p.items[id])
	}
	return out
}

// aggregation is the single pass shared by gap detection and performance summaries.
type aggregation struct {
	topics     map[string]*topicPerformance
	order      []string
	classified int // completed items that contributed at least one topic
}

func (a *aggregation) topic(name string) *topicPerformance {
	if p, ok := a.topics[name]; ok {
		return p
	}
	p := &topicPerformance{
		topic:            name,
		initiallyCorrect: true,
		lastCorrect:      true,
		items:            map[string]*ItemRef{},
	}
	a.topics[name] = p
	a.order = append(a.order, name)
	return p
}

func (a *aggregation) each(fn func(p *topicPerformance)) {
	for _, name := range a.order {
		fn(a.topics[name])
	}
}

// aggregate reduces completed items into per-topic accumulators.
// Items without a score or without attempts are ignored.
func aggregate(items []coursework.CourseItem) *aggregation {
	agg := &aggregation{topics: map[string]*topicPerformance{}}
	for _, it := range items {
		if !it.Completed() {
			continue
		}
		latest, _ := it.LatestAttempt()
		first, _ := it.FirstAttempt()

		if len(latest.Questions) > 0 {
			if aggregateQuestions(agg, it, first, latest) {
				agg.classified++
			}
			continue
		}
		if aggregateSubmission(agg, it, first, latest) {
			agg.classified++
		}
	}
	return agg
}

func aggregateQuestions(agg *aggregation, it coursework.CourseItem, first, latest coursework.Attempt) bool {
	firstByTopic := map[string]bool{}
	for _, q := range first.Questions {
		t := strings.TrimSpace(q.Topic)
		if _, seen := firstByTopic[t]; !seen {
			firstByTopic[t] = q.Correct()
		}
	}
	contributed := false
	for _, q := range latest.Questions {
		t := strings.TrimSpace(q.Topic)
		if t == "" {
			continue
		}
		last := q.Correct()
		initially, ok := firstByTopic[t]
		if !ok {
			initially = last
		}
		agg.topic(t).observe(it, latest, initially, last)
		contributed = true
	}
	return contributed
}

func aggregateSubmission(agg *aggregation, it coursework.CourseItem, first, latest coursework.Attempt) bool {
	if it.PointsPossible <= 0 {
		return false
	}
	t, ok := ExtractTopicFromTitle(it.Title)
	if !ok {
		return false
	}
	agg.topic(t).observe(it, latest, passed(first, it.PointsPossible), passed(latest, it.PointsPossible))
	return true
}

func passed(a coursework.Attempt, pointsPossible float64) bool {
	if a.Score == nil {
		return false
	}
	return *a.Score/pointsPossible >= passingRatio
}
