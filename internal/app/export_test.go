package app

import (
	"time"

	"learnpath-service/internal/domain"
)

// Test-only bridges so external (app_test) test files can reach unexported
// identifiers without importing this package's in-memory adapters in-package,
// which would create an import cycle (memory imports app).

const RecentQuizCap = recentQuizCap

func ThreeQuestionQuiz() domain.Quiz { return threeQuestionQuiz() }

func (s *SessionService) SetTick(d time.Duration) { s.tick = d }

func (s *SessionService) InjectSubscriber(attemptID string, ch chan AttemptEvent) {
	s.mu.Lock()
	s.subs[attemptID] = map[chan AttemptEvent]struct{}{ch: {}}
	s.mu.Unlock()
}

func (s *SessionService) Broadcast(attemptID string, event AttemptEvent) {
	s.broadcast(attemptID, event)
}
