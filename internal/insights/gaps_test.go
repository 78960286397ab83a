package insights

import (
	"fmt"
	"testing"
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

var (
	day0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now  = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
)

func fptr(v float64) *float64 { return &v }
func bptr(v bool) *bool       { return &v }

func q(topic string, correct bool) coursework.Question {
	return coursework.Question{Topic: topic, IsCorrect: bptr(correct)}
}

func attempt(no int, score float64, qs ...coursework.Question) coursework.Attempt {
	return coursework.Attempt{
		AttemptNo:   no,
		SubmittedAt: day0.AddDate(0, 0, no-1),
		Score:       fptr(score),
		Questions:   qs,
	}
}

func quiz(id string, attempts ...coursework.Attempt) coursework.CourseItem {
	it := coursework.CourseItem{
		ID:             id,
		StudentID:      "s1",
		CourseID:       "cse110",
		Type:           coursework.TypeQuiz,
		Title:          "Quiz " + id + ": Mixed",
		PointsPossible: 10,
		AttemptCount:   len(attempts),
		Status:         coursework.StatusGraded,
		Attempts:       attempts,
	}
	if len(attempts) > 0 {
		it.LatestScore = attempts[len(attempts)-1].Score
	}
	return it
}

// questions builds n questions on topic with the first `correct` marked right.
func questions(topic string, correct, n int) []coursework.Question {
	out := make([]coursework.Question, n)
	for i := range out {
		out[i] = q(topic, i < correct)
	}
	return out
}

func findGap(gaps []LearningGap, topic string) (LearningGap, bool) {
	for _, g := range gaps {
		if g.Topic == topic {
			return g, true
		}
	}
	return LearningGap{}, false
}

func TestIdentifyGaps_MasteredFirstTryIsExcluded(t *testing.T) {
	items := []coursework.CourseItem{
		quiz("1", attempt(1, 9, q("recursion", true))),
	}
	if gaps := IdentifyGaps(items); len(gaps) != 0 {
		t.Fatalf("expected no gaps, got %+v", gaps)
	}
}

func TestIdentifyGaps_HighButInitiallyWrongIsIncluded(t *testing.T) {
	items := []coursework.CourseItem{
		quiz("1",
			attempt(1, 4, q("recursion", false)),
			attempt(2, 9, q("recursion", true)),
		),
	}
	gaps := IdentifyGaps(items)
	if len(gaps) != 1 {
		t.Fatalf("expected one gap, got %d", len(gaps))
	}
	g := gaps[0]
	if g.Topic != "recursion" || g.Confidence != ConfidenceHigh || g.RecommendedReview {
		t.Fatalf("unexpected gap: %+v", g)
	}
	if len(g.RelatedItems) != 1 {
		t.Fatalf("expected one related item, got %+v", g.RelatedItems)
	}
	ref := g.RelatedItems[0]
	if ref.ID != "1" || ref.InitiallyCorrect || !ref.Resolved || ref.Attempts != 2 {
		t.Fatalf("unexpected item ref: %+v", ref)
	}
	if !g.LastPracticed.Equal(day0.AddDate(0, 0, 1)) {
		t.Fatalf("last practiced = %v", g.LastPracticed)
	}
}

func TestIdentifyGaps_AttemptOrderIsByNumber(t *testing.T) {
	// attempts arrive newest first; first/latest must still be chosen by number
	it := quiz("1",
		attempt(2, 9, q("recursion", true)),
		attempt(1, 4, q("recursion", false)),
	)
	gaps := IdentifyGaps([]coursework.CourseItem{it})
	if len(gaps) != 1 || gaps[0].Confidence != ConfidenceHigh || gaps[0].RelatedItems[0].InitiallyCorrect {
		t.Fatalf("unexpected gaps: %+v", gaps)
	}
}

func TestIdentifyGaps_ConfidenceBoundaries(t *testing.T) {
	cases := []struct {
		correct, total int
		lastRight      bool
		want           Confidence
	}{
		{4, 5, true, ConfidenceHigh},      // exactly 0.8
		{79, 100, true, ConfidenceMedium}, // 0.79
		{3, 5, true, ConfidenceMedium},    // exactly 0.6
		{59, 100, true, ConfidenceLow},    // 0.59
		{9, 10, false, ConfidenceMedium},  // high rate but last wrong
		{0, 3, false, ConfidenceLow},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d_of_%d", tc.correct, tc.total), func(t *testing.T) {
			p := &topicPerformance{correct: tc.correct, incorrect: tc.total - tc.correct, lastCorrect: tc.lastRight}
			if got := classify(p); got != tc.want {
				t.Fatalf("classify = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestIdentifyGaps_ConfidenceFromQuestions(t *testing.T) {
	// 4 of 5 right on the latest attempt: the aggregate "last correct" is false
	// because one question was wrong, so the topic lands in medium.
	items := []coursework.CourseItem{quiz("1", attempt(1, 8, questions("loops", 4, 5)...))}
	gaps := IdentifyGaps(items)
	g, ok := findGap(gaps, "loops")
	if !ok {
		t.Fatalf("expected loops gap, got %+v", gaps)
	}
	if g.Confidence != ConfidenceMedium || !g.RecommendedReview {
		t.Fatalf("unexpected gap: %+v", g)
	}

	items = []coursework.CourseItem{quiz("1", attempt(1, 5, questions("loops", 59, 100)...))}
	if g, _ := findGap(IdentifyGaps(items), "loops"); g.Confidence != ConfidenceLow {
		t.Fatalf("59%% should be low, got %s", g.Confidence)
	}
}

func TestIdentifyGaps_RecommendedReviewRule(t *testing.T) {
	items := []coursework.CourseItem{
		quiz("1", attempt(1, 2, q("pointers", false), q("arrays", true))),
		quiz("2", attempt(1, 3, q("pointers", false), q("arrays", false), q("arrays", true))),
	}
	for _, g := range IdentifyGaps(items) {
		if g.Confidence != ConfidenceHigh && !g.RecommendedReview {
			t.Fatalf("%s gap must recommend review: %+v", g.Confidence, g)
		}
	}
}

func TestIdentifyGaps_SortOrder(t *testing.T) {
	items := []coursework.CourseItem{
		// high, initially wrong, resolved: review=false
		quiz("1", attempt(1, 0, q("sorting", false)), attempt(2, 10, q("sorting", true))),
		// medium: 2/3
		quiz("2", attempt(1, 6, q("graphs", true), q("graphs", true), q("graphs", false))),
		// low: 0/1
		quiz("3", attempt(1, 0, q("heaps", false))),
	}
	gaps := IdentifyGaps(items)
	got := []string{}
	for _, g := range gaps {
		got = append(got, g.Topic)
	}
	want := []string{"heaps", "graphs", "sorting"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	if gaps[2].RecommendedReview {
		t.Fatalf("resolved high gap should not recommend review")
	}
}

func TestIdentifyGaps_TopicsUniqueAndItemsDeduplicated(t *testing.T) {
	items := []coursework.CourseItem{
		quiz("1", attempt(1, 5, q("recursion", false), q("recursion", true), q("loops", false))),
		quiz("2", attempt(1, 5, q("recursion", false))),
	}
	gaps := IdentifyGaps(items)
	seen := map[string]bool{}
	for _, g := range gaps {
		if seen[g.Topic] {
			t.Fatalf("duplicate topic %q in %+v", g.Topic, gaps)
		}
		seen[g.Topic] = true
	}
	g, _ := findGap(gaps, "recursion")
	if len(g.RelatedItems) != 2 {
		t.Fatalf("expected items 1 and 2 once each, got %+v", g.RelatedItems)
	}
	if g.RelatedItems[0].ID != "1" || g.RelatedItems[0].Resolved {
		t.Fatalf("item 1 had a wrong recursion answer and must not be resolved: %+v", g.RelatedItems[0])
	}
}

func TestIdentifyGaps_FiltersIncompleteItems(t *testing.T) {
	noScore := quiz("1", attempt(1, 0, q("recursion", false)))
	noScore.LatestScore = nil
	noAttempts := quiz("2")
	noAttempts.LatestScore = fptr(3)
	if gaps := IdentifyGaps([]coursework.CourseItem{noScore, noAttempts}); len(gaps) != 0 {
		t.Fatalf("incomplete items must be ignored, got %+v", gaps)
	}
}

func TestIdentifyGaps_InitialLookupFallsBackToLatestVerdict(t *testing.T) {
	// the first attempt never asked about "trees"; treat the latest verdict as the first one
	items := []coursework.CourseItem{
		quiz("1", attempt(1, 3, q("lists", false)), attempt(2, 5, q("lists", true), q("trees", true))),
	}
	gaps := IdentifyGaps(items)
	if _, ok := findGap(gaps, "trees"); ok {
		t.Fatalf("trees was right on its only appearance and must not be a gap: %+v", gaps)
	}
	if _, ok := findGap(gaps, "lists"); !ok {
		t.Fatalf("lists was initially wrong and must be a gap: %+v", gaps)
	}
}

func TestIdentifyGaps_AssignmentsUseTitleAndThreshold(t *testing.T) {
	assignment := func(id, title string, first, latest float64) coursework.CourseItem {
		return coursework.CourseItem{
			ID: id, CourseID: "cse110", Type: coursework.TypeAssignment, Title: title,
			PointsPossible: 100, LatestScore: fptr(latest), AttemptCount: 2,
			Status: coursework.StatusGraded,
			Attempts: []coursework.Attempt{
				{AttemptNo: 1, SubmittedAt: day0, Score: fptr(first)},
				{AttemptNo: 2, SubmittedAt: day0.AddDate(0, 0, 3), Score: fptr(latest)},
			},
		}
	}
	items := []coursework.CourseItem{
		assignment("a1", "Assignment 2: Linked Lists", 70, 85),
		assignment("a2", "Assignment 3:   Hash Tables", 80, 80),
		assignment("a3", "Exam 1: Midterm Review", 50, 79),
		assignment("a4", "Quiz 4:", 10, 10), // no topic left after stripping
	}
	gaps := IdentifyGaps(items)

	ll, ok := findGap(gaps, "linked lists")
	if !ok || ll.Confidence != ConfidenceHigh || ll.RecommendedReview || ll.RelatedItems[0].InitiallyCorrect {
		t.Fatalf("linked lists: %+v (found=%v)", ll, ok)
	}
	if _, ok := findGap(gaps, "hash tables"); ok {
		t.Fatalf("hash tables passed both attempts at exactly 80%% and must not be a gap")
	}
	mid, ok := findGap(gaps, "midterm review")
	if !ok || mid.Confidence != ConfidenceLow || !mid.RecommendedReview {
		t.Fatalf("midterm review: %+v (found=%v)", mid, ok)
	}
	if len(gaps) != 2 {
		t.Fatalf("expected 2 gaps, got %+v", gaps)
	}
}

func TestIdentifyGaps_AssignmentWithoutPointsIsDropped(t *testing.T) {
	it := coursework.CourseItem{
		ID: "a1", Type: coursework.TypeAssignment, Title: "Assignment 1: Essays",
		LatestScore: fptr(5), Attempts: []coursework.Attempt{{AttemptNo: 1, Score: fptr(5)}},
	}
	if gaps := IdentifyGaps([]coursework.CourseItem{it}); len(gaps) != 0 {
		t.Fatalf("expected item without points to be dropped, got %+v", gaps)
	}
}

func upcoming(id, title string, due time.Time) coursework.CourseItem {
	return coursework.CourseItem{
		ID: id, CourseID: "cse110", Type: coursework.TypeQuiz, Title: title,
		PointsPossible: 10, Status: coursework.StatusUpcoming, DueDate: &due,
	}
}

func TestIdentifyUpcomingTopics(t *testing.T) {
	items := []coursework.CourseItem{
		upcoming("u1", "Quiz 5: Graphs", now.AddDate(0, 0, 10)),
		upcoming("u2", "Assignment 6: Graphs", now.AddDate(0, 0, 3)),
		upcoming("u3", "Exam 2:", now.AddDate(0, 0, 5)),                    // raw title fallback
		upcoming("u4", "Quiz 7: Dynamic Programming", now.Add(-time.Hour)), // already past
		upcoming("u5", "Quiz 8: Tries", now),                               // not strictly after now
	}
	graded := upcoming("g1", "Quiz 1: Graphs", now.AddDate(0, 0, 1))
	graded.Status = coursework.StatusGraded
	items = append(items, graded)

	got := IdentifyUpcomingTopics(items, now)
	if len(got) != 2 {
		t.Fatalf("expected 2 topics, got %+v", got)
	}
	if got[0].Topic != "graphs" || got[1].Topic != "Exam 2:" {
		t.Fatalf("unexpected topics/order: %q, %q", got[0].Topic, got[1].Topic)
	}
	if len(got[0].RelatedItems) != 2 || got[0].RelatedItems[0].ID != "u2" {
		t.Fatalf("graphs items should be ordered by due date: %+v", got[0].RelatedItems)
	}
	for _, topic := range got {
		if !topic.PreStudyRecommended {
			t.Fatalf("topic %q should recommend pre-study", topic.Topic)
		}
		for _, it := range topic.RelatedItems {
			if !it.PreStudyRecommended {
				t.Fatalf("item %s should recommend pre-study", it.ID)
			}
		}
	}
}

func TestDetectLearningGaps_PerCourseStatus(t *testing.T) {
	strong := quiz("1", attempt(1, 10, q("recursion", true)))
	weak := quiz("2", attempt(1, 0, q("pointers", false)))
	weak.CourseID = "cse240"
	onlyUpcoming := upcoming("u1", "Quiz 1: Limits", now.AddDate(0, 0, 2))
	onlyUpcoming.CourseID = "mat265"

	got := DetectLearningGaps([]coursework.CourseItem{strong, weak, onlyUpcoming}, now)
	if len(got) != 3 {
		t.Fatalf("expected 3 courses, got %d", len(got))
	}
	want := []struct {
		course string
		status GapStatus
		gaps   int
	}{
		{"cse110", StatusNoGaps, 0},
		{"cse240", StatusGapsFound, 1},
		{"mat265", StatusInsufficientData, 0},
	}
	for i, w := range want {
		c := got[i]
		if c.CourseID != w.course || c.Status != w.status || len(c.Gaps) != w.gaps {
			t.Fatalf("course %d = {%s %s %d}, want %+v", i, c.CourseID, c.Status, len(c.Gaps), w)
		}
	}
	if len(got[2].UpcomingTopics) != 1 || got[2].UpcomingTopics[0].Topic != "limits" {
		t.Fatalf("upcoming topics for mat265: %+v", got[2].UpcomingTopics)
	}
}

func TestDetectLearningGaps_Empty(t *testing.T) {
	if got := DetectLearningGaps(nil, now); len(got) != 0 {
		t.Fatalf("expected no courses, got %+v", got)
	}
}
