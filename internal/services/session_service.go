package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/accountbook/backend/internal/ledger"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionService keeps edit sessions between requests. Sessions live in
// Redis with a TTL; without Redis they are held in process memory and never
// expire.
type SessionService struct {
	redis *redis.Client
	ttl   time.Duration
	newID func() string

	mu     sync.Mutex
	memory map[string][]byte
}

func NewSessionService(rdb *redis.Client, ttl time.Duration) *SessionService {
	return &SessionService{
		redis:  rdb,
		ttl:    ttl,
		newID:  uuid.NewString,
		memory: make(map[string][]byte),
	}
}

func (s *SessionService) key(id string) string {
	return fmt.Sprintf("ledger:session:%s", id)
}

// Create stores a new session and returns its id.
func (s *SessionService) Create(ctx context.Context, session *ledger.Session) (string, error) {
	id := s.newID()
	if err := s.Put(ctx, id, session); err != nil {
		return "", err
	}
	return id, nil
}

// Put overwrites the session and refreshes its TTL.
func (s *SessionService) Put(ctx context.Context, id string, session *ledger.Session) error {
	jsonData, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("services: encode session: %w", err)
	}

	if s.redis == nil {
		s.mu.Lock()
		s.memory[id] = jsonData
		s.mu.Unlock()
		return nil
	}

	if err := s.redis.Set(ctx, s.key(id), string(jsonData), s.ttl).Err(); err != nil {
		return fmt.Errorf("services: store session %s: %w", id, err)
	}
	return nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*ledger.Session, error) {
	var data []byte
	if s.redis == nil {
		s.mu.Lock()
		stored, ok := s.memory[id]
		s.mu.Unlock()
		if !ok {
			return nil, ErrSessionNotFound
		}
		data = stored
	} else {
		stored, err := s.redis.Get(ctx, s.key(id)).Bytes()
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("services: read session %s: %w", id, err)
		}
		data = stored
	}

	var session ledger.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("services: decode session %s: %w", id, err)
	}
	return &session, nil
}

func (s *SessionService) Delete(ctx context.Context, id string) error {
	if s.redis == nil {
		s.mu.Lock()
		delete(s.memory, id)
		s.mu.Unlock()
		return nil
	}
	if err := s.redis.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("services: delete session %s: %w", id, err)
	}
	return nil
}
