// Package studyaid serves cached learning insights and turns them into
// AI-generated study material.
package studyaid

import (
	"context"
	"fmt"
	"time"

	"github.com/mind-engage/studycoach/internal/cache"
	"github.com/mind-engage/studycoach/internal/coursework"
	"github.com/mind-engage/studycoach/internal/insights"
	"github.com/mind-engage/studycoach/internal/platform/logger"
)

const DefaultInsightsTTL = 30 * time.Minute

const (
	kindGaps        = "gaps"
	kindPerformance = "performance"
)

// InsightsService loads a student's coursework and runs insight detection
// over it, caching results per student and course.
type InsightsService struct {
	items coursework.Store
	cache cache.Cache
	ttl   time.Duration
	log   *logger.Logger
	now   func() time.Time
}

func NewInsightsService(items coursework.Store, c cache.Cache, ttl time.Duration, log *logger.Logger) *InsightsService {
	if ttl <= 0 {
		ttl = DefaultInsightsTTL
	}
	return &InsightsService{items: items, cache: c, ttl: ttl, log: log.With("service", "InsightsService"), now: time.Now}
}

func cacheKey(kind, studentID, courseID string) string {
	return fmt.Sprintf("insights:%s:%s:%s", kind, studentID, courseID)
}

func (s *InsightsService) load(ctx context.Context, studentID, courseID string) ([]coursework.CourseItem, error) {
	items, err := s.items.ListItems(ctx, coursework.ListOpts{StudentID: studentID, CourseID: courseID})
	if err != nil {
		return nil, fmt.Errorf("load items for %s: %w", studentID, err)
	}
	return items, nil
}

// LearningGaps returns per-course gaps for the student. An empty courseID
// covers every course.
func (s *InsightsService) LearningGaps(ctx context.Context, studentID, courseID string) ([]insights.CourseLearningGaps, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKey(kindGaps, studentID, courseID), s.ttl,
		func(ctx context.Context) ([]insights.CourseLearningGaps, error) {
			items, err := s.load(ctx, studentID, courseID)
			if err != nil {
				return nil, err
			}
			out := insights.DetectLearningGaps(items, s.now())
			s.log.Debug("learning gaps computed", "student_id", studentID, "course_id", courseID, "courses", len(out))
			return out, nil
		})
}

func (s *InsightsService) Performance(ctx context.Context, studentID, courseID string) (insights.PerformanceSummary, error) {
	return cache.GetOrLoad(ctx, s.cache, cacheKey(kindPerformance, studentID, courseID), s.ttl,
		func(ctx context.Context) (insights.PerformanceSummary, error) {
			items, err := s.load(ctx, studentID, courseID)
			if err != nil {
				return insights.PerformanceSummary{}, err
			}
			return insights.AnalyzePerformance(items, s.now()), nil
		})
}

// Invalidate drops cached insights for the course and for the all-courses view.
func (s *InsightsService) Invalidate(ctx context.Context, studentID, courseID string) {
	keys := []string{
		cacheKey(kindGaps, studentID, ""),
		cacheKey(kindPerformance, studentID, ""),
	}
	if courseID != "" {
		keys = append(keys, cacheKey(kindGaps, studentID, courseID), cacheKey(kindPerformance, studentID, courseID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("insights cache invalidation failed", "student_id", studentID, "error", err.Error())
	}
}
