package memory

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-research-desk/internal/entity"
)

// SessionRepository keeps conversations in process memory. Sessions expire
// after a day of inactivity; Save refreshes the TTL.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository() *SessionRepository {
	c := cache.New(24*time.Hour, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func (r *SessionRepository) Save(session *entity.Session) {
	r.cache.Set(session.Id.String(), session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionId uuid.UUID) (*entity.Session, bool) {
	if x, found := r.cache.Get(sessionId.String()); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(sessionId uuid.UUID) {
	r.cache.Delete(sessionId.String())
}

// All returns every live session, newest first.
func (r *SessionRepository) All() []*entity.Session {
	items := r.cache.Items()
	sessions := make([]*entity.Session, 0, len(items))
	for _, item := range items {
		sessions = append(sessions, item.Object.(*entity.Session))
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	return sessions
}
