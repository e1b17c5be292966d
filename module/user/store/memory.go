package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"TripChat/module/user/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store for tests and local runs without Mongo.
type Memory struct {
	mu   sync.RWMutex
	byID map[primitive.ObjectID]model.User
	seq  time.Duration
}

func NewMemory() *Memory {
	return &Memory{byID: make(map[primitive.ObjectID]model.User)}
}

func (s *Memory) Create(_ context.Context, u *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.byID {
		if other.Email == u.Email || other.Username == u.Username {
			return ErrDuplicate.WrapMsg("", "email", u.Email, "username", u.Username)
		}
	}
	// strictly increasing timestamps keep ListExcept deterministic
	s.seq += time.Millisecond
	now := time.Now().UTC().Add(s.seq)
	u.CreatedAt, u.UpdatedAt = now, now
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	s.byID[u.ID] = *u
	return nil
}

func (s *Memory) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := s.get(id)
	if !ok {
		return nil, ErrNotFound.WrapMsg("", "id", id)
	}
	u.Password = ""
	return &u, nil
}

func (s *Memory) FindByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound.Wrap()
}

func (s *Memory) UsernameTaken(_ context.Context, username, exceptID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, u := range s.byID {
		if u.Username == username && id.Hex() != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Memory) EmailTaken(_ context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(context.Background(), email)
	return err == nil, nil
}

func (s *Memory) UpdateProfile(_ context.Context, id string, p model.Profile) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[oid]
	if !ok {
		return nil, ErrNotFound.WrapMsg("", "id", id)
	}
	u.Name, u.LastName, u.Username = p.Name, p.LastName, p.Username
	u.DateOfBirth, u.Bio = p.DateOfBirth, p.Bio
	if p.ProfilePicture != "" {
		u.ProfilePicture = p.ProfilePicture
	}
	u.UpdatedAt = time.Now().UTC()
	s.byID[oid] = u
	u.Password = ""
	return &u, nil
}

func (s *Memory) ListExcept(_ context.Context, id string) ([]model.User, error) {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.byID))
	for oid, u := range s.byID {
		if oid.Hex() != id {
			u.Password = ""
			out = append(out, u)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) Exists(_ context.Context, id string) (bool, error) {
	_, ok := s.get(id)
	return ok, nil
}

// Remove drops a user; it stands in for an account deleted behind the API's back.
func (s *Memory) Remove(id string) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return
	}
	s.mu.Lock()
	delete(s.byID, oid)
	s.mu.Unlock()
}

func (s *Memory) get(id string) (model.User, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return model.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[oid]
	return u, ok
}
