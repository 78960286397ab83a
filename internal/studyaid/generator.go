package studyaid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/studycoach/internal/createai"
	"github.com/mind-engage/studycoach/internal/eventlog"
	"github.com/mind-engage/studycoach/internal/insights"
	"github.com/mind-engage/studycoach/internal/platform/logger"
	"github.com/mind-engage/studycoach/internal/storage"
)

type Kind string

const (
	KindFlashcards Kind = "flashcards"
	KindQuiz       Kind = "quiz"
	KindSummary    Kind = "summary"
	KindMusic      Kind = "music"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFlashcards, KindQuiz, KindSummary, KindMusic:
		return true
	}
	return false
}

const maxDefaultTopics = 5

var (
	ErrUnknownKind     = errors.New("studyaid: unknown kind")
	ErrNoTopics        = errors.New("studyaid: no topics to study")
	ErrMalformedOutput = errors.New("studyaid: malformed model output")
)

type Request struct {
	StudentID string
	CourseID  string
	Kind      Kind
	Topics    []string
	Count     int // cards or questions; defaults to 10
}

type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

type QuizQuestion struct {
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	Answer      string   `json:"answer"`
	Explanation string   `json:"explanation,omitempty"`
}

type Artifact struct {
	ID         string         `json:"id"`
	StudentID  string         `json:"student_id"`
	CourseID   string         `json:"course_id,omitempty"`
	Kind       Kind           `json:"kind"`
	Topics     []string       `json:"topics"`
	Flashcards []Flashcard    `json:"flashcards,omitempty"`
	Quiz       []QuizQuestion `json:"quiz,omitempty"`
	Text       string         `json:"text,omitempty"`
	URL        string         `json:"url"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Querier is the slice of the CreateAI client the generator needs.
type Querier interface {
	Query(ctx context.Context, q createai.QueryRequest) (createai.QueryResponse, error)
}

// GapSource supplies learning gaps for picking default topics.
type GapSource interface {
	LearningGaps(ctx context.Context, studentID, courseID string) ([]insights.CourseLearningGaps, error)
}

type Generator struct {
	ai     Querier
	gaps   GapSource
	blobs  storage.BlobStore
	events eventlog.Appender
	log    *logger.Logger
	now    func() time.Time
}

func NewGenerator(ai Querier, gaps GapSource, blobs storage.BlobStore, events eventlog.Appender, log *logger.Logger) *Generator {
	return &Generator{ai: ai, gaps: gaps, blobs: blobs, events: events, log: log.With("service", "StudyAidGenerator"), now: time.Now}
}

// Generate builds one study aid. Without explicit topics it targets the
// student's gaps that still recommend review.
func (g *Generator) Generate(ctx context.Context, req Request) (Artifact, error) {
	if !req.Kind.Valid() {
		return Artifact{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	if req.Count <= 0 {
		req.Count = 10
	}
	topics := cleanTopics(req.Topics)
	if len(topics) == 0 {
		var err error
		if topics, err = g.reviewTopics(ctx, req.StudentID, req.CourseID); err != nil {
			return Artifact{}, err
		}
	}
	if len(topics) == 0 {
		return Artifact{}, ErrNoTopics
	}

	resp, err := g.ai.Query(ctx, createai.QueryRequest{
		Query:        prompt(req.Kind, topics, req.Count),
		SystemPrompt: systemPrompt,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("generate %s: %w", req.Kind, err)
	}

	a := Artifact{
		ID:        uuid.NewString(),
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Kind:      req.Kind,
		Topics:    topics,
		CreatedAt: g.now().UTC(),
	}
	switch req.Kind {
	case KindFlashcards:
		err = decodeList(resp.Response, "flashcards", &a.Flashcards)
	case KindQuiz:
		err = decodeList(resp.Response, "questions", &a.Quiz)
	default:
		a.Text = strings.TrimSpace(resp.Response)
		if a.Text == "" {
			err = ErrMalformedOutput
		}
	}
	if err != nil {
		g.log.Warn("study aid output rejected", "kind", string(req.Kind), "error", err.Error())
		return Artifact{}, err
	}

	key := fmt.Sprintf("studyaids/%s/%s.json", req.StudentID, a.ID)
	a.URL = g.blobs.URL(key)
	raw, err := json.Marshal(a)
	if err != nil {
		return Artifact{}, err
	}
	if _, err := g.blobs.Put(ctx, key, bytes.NewReader(raw)); err != nil {
		return Artifact{}, fmt.Errorf("store study aid: %w", err)
	}

	if err := g.events.Append(ctx, eventlog.TypeStudyAidGenerated, req.StudentID, map[string]any{
		"id": a.ID, "kind": a.Kind, "course_id": a.CourseID, "topics": a.Topics,
	}); err != nil {
		g.log.Warn("event append failed", "event", eventlog.TypeStudyAidGenerated, "error", err.Error())
	}
	g.log.Info("study aid generated", "kind", string(a.Kind), "student_id", req.StudentID, "topics", len(topics))
	return a, nil
}

func (g *Generator) reviewTopics(ctx context.Context, studentID, courseID string) ([]string, error) {
	courses, err := g.gaps.LearningGaps(ctx, studentID, courseID)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out []string
	for _, c := range courses {
		for _, gap := range c.Gaps {
			if !gap.RecommendedReview || seen[gap.Topic] {
				continue
			}
			seen[gap.Topic] = true
			out = append(out, gap.Topic)
			if len(out) == maxDefaultTopics {
				return out, nil
			}
		}
	}
	return out, nil
}

func cleanTopics(in []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}
