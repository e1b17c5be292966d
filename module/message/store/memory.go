package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"TripChat/module/message/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store for tests and local runs without Mongo.
type Memory struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]model.Message
	now  func() time.Time

	// FailWith, when set, is returned by every write.
	FailWith error
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[primitive.ObjectID]model.Message), now: time.Now}
}

func (s *Memory) Create(_ context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	s.byID[m.ID] = *m
	return nil
}

func (s *Memory) FindByID(_ context.Context, id string) (*model.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.byID[oid]
	if !ok {
		return nil, ErrNotFound.WrapMsg("", "id", id)
	}
	return &m, nil
}

func (s *Memory) Delete(_ context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	if _, ok := s.byID[oid]; !ok {
		return ErrNotFound.WrapMsg("", "id", id)
	}
	delete(s.byID, oid)
	return nil
}

func (s *Memory) Conversation(_ context.Context, a, b string) ([]model.Message, error) {
	out := s.filter(func(m model.Message) bool {
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func (s *Memory) MarkRead(_ context.Context, senderID, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return 0, s.FailWith
	}
	var n int64
	for id, m := range s.byID {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			m.UpdatedAt = s.now().UTC()
			s.byID[id] = m
			n++
		}
	}
	return n, nil
}

func (s *Memory) LastActivities(_ context.Context, userID string) ([]model.Activity, error) {
	latest := make(map[string]model.Message)
	for _, m := range s.filter(func(m model.Message) bool { return m.SenderID == userID || m.ReceiverID == userID }) {
		partner := m.SenderID
		if partner == userID {
			partner = m.ReceiverID
		}
		if cur, ok := latest[partner]; !ok || m.CreatedAt.After(cur.CreatedAt) {
			latest[partner] = m
		}
	}
	out := make([]model.Activity, 0, len(latest))
	for partner, m := range latest {
		out = append(out, model.Activity{PartnerID: partner, LastMessage: m, LastAt: m.CreatedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastAt.After(out[j].LastAt) })
	return out, nil
}

func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Memory) filter(keep func(model.Message) bool) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Message, 0)
	for _, m := range s.byID {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}
