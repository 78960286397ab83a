package insights

import (
	"strings"
	"testing"
	"time"

	"github.com/mind-engage/studycoach/internal/coursework"
)

func TestAnalyzePerformance(t *testing.T) {
	items := []coursework.CourseItem{
		quiz("1", attempt(1, 9, q("recursion", true), q("recursion", true), q("loops", false))),
		quiz("2", attempt(1, 7, q("loops", true), q("arrays", true))),
		upcoming("u1", "Quiz 3: Graphs", now.AddDate(0, 0, 4)),
	}
	missing := quiz("m1")
	missing.Status = coursework.StatusMissing
	items = append(items, missing)

	got := AnalyzePerformance(items, now)

	if got.TotalItems != 4 || got.CompletedItems != 2 {
		t.Fatalf("counts = %d/%d", got.CompletedItems, got.TotalItems)
	}
	if got.OverallScore != 80 {
		t.Fatalf("overall = %v, want 80", got.OverallScore)
	}
	// 2 of 3 due items completed
	if got.CompletionRate != 66.7 {
		t.Fatalf("completion = %v, want 66.7", got.CompletionRate)
	}

	if len(got.Strengths) != 2 || got.Strengths[0].Topic != "recursion" || got.Strengths[1].Topic != "arrays" {
		t.Fatalf("strengths = %+v", got.Strengths)
	}
	if len(got.Weaknesses) != 1 || got.Weaknesses[0].Topic != "loops" || got.Weaknesses[0].SuccessRate != 50 {
		t.Fatalf("weaknesses = %+v", got.Weaknesses)
	}
	if got.NextDue == nil || got.NextDue.ID != "u1" {
		t.Fatalf("next due = %+v", got.NextDue)
	}

	if !strings.Contains(got.Summary, "2 of 4 items") || !strings.Contains(got.Summary, "80%") {
		t.Fatalf("summary = %q", got.Summary)
	}
	advice := strings.Join(got.Advice, "\n")
	for _, want := range []string{"Review loops", "completion rate is 67%", "Quiz 3: Graphs is due in 4 days"} {
		if !strings.Contains(advice, want) {
			t.Errorf("advice missing %q:\n%s", want, advice)
		}
	}
}

func TestAnalyzePerformance_NoGradedWork(t *testing.T) {
	got := AnalyzePerformance([]coursework.CourseItem{upcoming("u1", "Quiz 1: Sets", now.Add(2*time.Hour))}, now)
	if got.CompletedItems != 0 || got.OverallScore != 0 || got.CompletionRate != 0 {
		t.Fatalf("unexpected numbers: %+v", got)
	}
	if !strings.HasPrefix(got.Summary, "No graded work yet") {
		t.Fatalf("summary = %q", got.Summary)
	}
	if len(got.Advice) != 1 || !strings.Contains(got.Advice[0], "due within a day") {
		t.Fatalf("advice = %v", got.Advice)
	}
}

func TestAnalyzePerformance_BandsAreIndependentOfGapBands(t *testing.T) {
	// 0.7 sits in the medium gap band and above the weakness rate
	items := []coursework.CourseItem{quiz("1", attempt(1, 7, questions("sets", 7, 10)...))}

	gaps := IdentifyGaps(items)
	if len(gaps) != 1 || gaps[0].Confidence != ConfidenceMedium {
		t.Fatalf("gaps = %+v", gaps)
	}
	perf := AnalyzePerformance(items, now)
	if len(perf.Strengths) != 0 {
		t.Fatalf("strengths = %+v", perf.Strengths)
	}
	// still a weakness: the latest attempt was not entirely correct
	if len(perf.Weaknesses) != 1 || perf.Weaknesses[0].SuccessRate != 70 {
		t.Fatalf("weaknesses = %+v", perf.Weaknesses)
	}
}
