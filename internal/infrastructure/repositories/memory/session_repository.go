package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"streamgate/internal/core/domain"
	"streamgate/internal/core/ports"
)

const sessionShardCount = 32

// MemorySessionRepository keeps the session registry in process
// memory. Sessions are sharded by user so the atomic
// count-and-reserve in ReserveSlot contends only with requests for the
// same shard, not with every admission in flight.
type MemorySessionRepository struct {
	shards [sessionShardCount]*sessionShard

	indexMu sync.RWMutex
	index   map[domain.SessionID]domain.UserID
}

type sessionShard struct {
	mu       sync.Mutex
	sessions map[domain.UserID]map[domain.SessionID]*domain.StreamSession
}

func NewMemorySessionRepository() ports.SessionRepository {
	r := &MemorySessionRepository{
		index: make(map[domain.SessionID]domain.UserID),
	}
	for i := range r.shards {
		r.shards[i] = &sessionShard{
			sessions: make(map[domain.UserID]map[domain.SessionID]*domain.StreamSession),
		}
	}
	return r
}

func (r *MemorySessionRepository) shardFor(userID domain.UserID) *sessionShard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%sessionShardCount]
}

func (r *MemorySessionRepository) ReserveSlot(ctx context.Context, session *domain.StreamSession, limit int) error {
	shard := r.shardFor(session.UserID)

	shard.mu.Lock()
	userSessions := shard.sessions[session.UserID]
	if len(userSessions) >= limit {
		shard.mu.Unlock()
		return domain.ErrSlotLimitReached
	}
	if userSessions == nil {
		userSessions = make(map[domain.SessionID]*domain.StreamSession)
		shard.sessions[session.UserID] = userSessions
	}
	copied := *session
	userSessions[session.SessionID] = &copied
	shard.mu.Unlock()

	r.indexMu.Lock()
	r.index[session.SessionID] = session.UserID
	r.indexMu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Commit(ctx context.Context, id domain.SessionID) error {
	session, shard, ok := r.locate(id)
	if !ok {
		return domain.ErrSessionNotFound
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if session.Status == domain.SessionRequested {
		session.Status = domain.SessionActive
	}
	return nil
}

func (r *MemorySessionRepository) Get(ctx context.Context, id domain.SessionID) (*domain.StreamSession, error) {
	session, shard, ok := r.locate(id)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	copied := *session
	return &copied, nil
}

func (r *MemorySessionRepository) Touch(ctx context.Context, id domain.SessionID, at time.Time) error {
	session, shard, ok := r.locate(id)
	if !ok {
		return domain.ErrSessionNotFound
	}

	shard.mu.Lock()
	defer shard.mu.Unlock()
	// A beat at or past token expiry must not extend the session; the
	// sweep ends it as token_expired.
	if session.Status == domain.SessionActive && at.Before(session.TokenExpiresAt) {
		session.LastActivity = at
	}
	return nil
}

func (r *MemorySessionRepository) End(ctx context.Context, id domain.SessionID) error {
	r.indexMu.Lock()
	userID, ok := r.index[id]
	if ok {
		delete(r.index, id)
	}
	r.indexMu.Unlock()
	if !ok {
		return nil
	}

	shard := r.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if userSessions := shard.sessions[userID]; userSessions != nil {
		delete(userSessions, id)
		if len(userSessions) == 0 {
			delete(shard.sessions, userID)
		}
	}
	return nil
}

func (r *MemorySessionRepository) ListActiveByUser(ctx context.Context, userID domain.UserID) ([]*domain.StreamSession, error) {
	shard := r.shardFor(userID)

	shard.mu.Lock()
	defer shard.mu.Unlock()

	var active []*domain.StreamSession
	for _, session := range shard.sessions[userID] {
		if session.Status == domain.SessionActive {
			copied := *session
			active = append(active, &copied)
		}
	}
	return active, nil
}

func (r *MemorySessionRepository) ListLive(ctx context.Context) ([]*domain.StreamSession, error) {
	var live []*domain.StreamSession
	for _, shard := range r.shards {
		shard.mu.Lock()
		for _, userSessions := range shard.sessions {
			for _, session := range userSessions {
				copied := *session
				live = append(live, &copied)
			}
		}
		shard.mu.Unlock()
	}
	return live, nil
}

func (r *MemorySessionRepository) locate(id domain.SessionID) (*domain.StreamSession, *sessionShard, bool) {
	r.indexMu.RLock()
	userID, ok := r.index[id]
	r.indexMu.RUnlock()
	if !ok {
		return nil, nil, false
	}

	shard := r.shardFor(userID)
	shard.mu.Lock()
	session := shard.sessions[userID][id]
	shard.mu.Unlock()
	if session == nil {
		return nil, nil, false
	}
	return session, shard, true
}
