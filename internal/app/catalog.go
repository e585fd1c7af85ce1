package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"learnpath-service/internal/domain"
)

// PaperRepository lists subject papers.
type PaperRepository interface {
	ListPapers(ctx context.Context) ([]domain.Paper, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizCatalog lists quiz summaries for browsing.
type QuizCatalog interface {
	ListQuizzes(ctx context.Context, paperID string) ([]domain.QuizSummary, error)
}

// LessonRepository serves recorded/live lessons and lesson requests.
type LessonRepository interface {
	ListLessons(ctx context.Context, paperID string) ([]domain.Lesson, error)
	CreateLessonRequest(ctx context.Context, req domain.LessonRequest) error
}

// BlobStore is the opaque key-value contract the recent-quizzes list is
// persisted through.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, blob []byte) error
}

const recentQuizCap = 10

// CatalogService is the browsing surface: papers, quizzes, lessons and the
// per-user recent-quizzes list. Reads against unconfigured backend tables
// degrade to empty collections instead of failing the page.
type CatalogService struct {
	papers  PaperRepository
	quizzes QuizRepository
	catalog QuizCatalog
	lessons LessonRepository
	recents BlobStore
	log     *logrus.Entry
	now     func() time.Time
}

func NewCatalogService(papers PaperRepository, quizzes QuizRepository, catalog QuizCatalog, lessons LessonRepository, recents BlobStore, log *logrus.Entry) *CatalogService {
	return &CatalogService{
		papers:  papers,
		quizzes: quizzes,
		catalog: catalog,
		lessons: lessons,
		recents: recents,
		log:     log,
		now:     time.Now,
	}
}

// Papers lists all subject papers.
func (s *CatalogService) Papers(ctx context.Context) ([]domain.Paper, error) {
	papers, err := s.papers.ListPapers(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return []domain.Paper{}, nil
		}
		return nil, err
	}
	return papers, nil
}

// Quizzes lists quiz summaries, optionally filtered to one paper.
func (s *CatalogService) Quizzes(ctx context.Context, paperID string) ([]domain.QuizSummary, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx, paperID)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return []domain.QuizSummary{}, nil
		}
		return nil, err
	}
	return quizzes, nil
}

// Quiz fetches full quiz content through the cache.
func (s *CatalogService) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// Lessons lists recorded and live lessons, optionally filtered to one paper.
func (s *CatalogService) Lessons(ctx context.Context, paperID string) ([]domain.Lesson, error) {
	lessons, err := s.lessons.ListLessons(ctx, paperID)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return []domain.Lesson{}, nil
		}
		return nil, err
	}
	return lessons, nil
}

// RequestLesson records a learner's lesson request.
func (s *CatalogService) RequestLesson(ctx context.Context, userID, subject, topic string) (domain.LessonRequest, error) {
	req := domain.LessonRequest{
		ID:        uuid.New().String(),
		UserID:    userID,
		Subject:   strings.TrimSpace(subject),
		Topic:     strings.TrimSpace(topic),
		CreatedAt: s.now(),
	}
	if err := s.lessons.CreateLessonRequest(ctx, req); err != nil {
		return domain.LessonRequest{}, err
	}
	return req, nil
}

// RecentQuizzes reads the user's recent-quizzes blob. Missing or corrupt
// blobs degrade to an empty list.
func (s *CatalogService) RecentQuizzes(ctx context.Context, userID string) ([]domain.RecentQuiz, error) {
	blob, found, err := s.recents.Get(ctx, recentKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.RecentQuiz{}, nil
	}
	var recents []domain.RecentQuiz
	if err := json.Unmarshal(blob, &recents); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("discarding corrupt recent-quizzes blob")
		return []domain.RecentQuiz{}, nil
	}
	return recents, nil
}

// RecordRecent prepends an entry to the user's recent-quizzes list,
// deduplicating by quiz id and keeping the newest entries. The write is
// optimistic: a failure is logged and the caller proceeds.
func (s *CatalogService) RecordRecent(ctx context.Context, userID string, entry domain.RecentQuiz) {
	recents, err := s.RecentQuizzes(ctx, userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("read recent quizzes failed")
		recents = nil
	}

	updated := []domain.RecentQuiz{entry}
	for _, existing := range recents {
		if existing.QuizID == entry.QuizID {
			continue
		}
		updated = append(updated, existing)
		if len(updated) == recentQuizCap {
			break
		}
	}

	blob, err := json.Marshal(updated)
	if err != nil {
		s.log.WithError(err).Warn("marshal recent quizzes failed")
		return
	}
	if err := s.recents.Set(ctx, recentKey(userID), blob); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("write recent quizzes failed")
	}
}

func recentKey(userID string) string {
	return "recent:" + userID
}
