package memory

import (
	"context"
	"sync"

	"learnpath-service/internal/domain"
)

// CatalogStore is an in-memory browsing backend: papers, quiz summaries,
// lessons and lesson requests. It backs demo mode and tests.
type CatalogStore struct {
	mu       sync.RWMutex
	papers   []domain.Paper
	quizzes  []domain.QuizSummary
	lessons  []domain.Lesson
	requests []domain.LessonRequest
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

// SeedPapers replaces the paper list.
func (s *CatalogStore) SeedPapers(papers ...domain.Paper) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.papers = papers
}

// SeedQuizzes replaces the quiz summary list.
func (s *CatalogStore) SeedQuizzes(quizzes ...domain.QuizSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes = quizzes
}

// SeedLessons replaces the lesson list.
func (s *CatalogStore) SeedLessons(lessons ...domain.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons = lessons
}

func (s *CatalogStore) ListPapers(_ context.Context) ([]domain.Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Paper, len(s.papers))
	copy(out, s.papers)
	return out, nil
}

func (s *CatalogStore) ListQuizzes(_ context.Context, paperID string) ([]domain.QuizSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuizSummary, 0, len(s.quizzes))
	for _, q := range s.quizzes {
		if paperID == "" || q.PaperID == paperID {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *CatalogStore) ListLessons(_ context.Context, paperID string) ([]domain.Lesson, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Lesson, 0, len(s.lessons))
	for _, l := range s.lessons {
		if paperID == "" || l.PaperID == paperID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *CatalogStore) CreateLessonRequest(_ context.Context, req domain.LessonRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

// LessonRequests returns recorded requests, for tests.
func (s *CatalogStore) LessonRequests() []domain.LessonRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.LessonRequest, len(s.requests))
	copy(out, s.requests)
	return out
}
