package auth

import (
	"context"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

type memSessions struct {
	mu      sync.Mutex
	data    map[string]SessionData
	getErr  error
	saveErr error
	saved   []string
}

func newMemSessions() *memSessions {
	return &memSessions{data: make(map[string]SessionData)}
}

func (m *memSessions) Get(_ context.Context, id string) (SessionData, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return SessionData{}, false, m.getErr
	}
	d, ok := m.data[id]
	return d, ok, nil
}

func (m *memSessions) Save(_ context.Context, id string, data SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[id] = data
	m.saved = append(m.saved, id)
	return nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *memSessions) DeleteUserSessions(_ context.Context, userID int64, keep string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, d := range m.data {
		if d.UserID == userID && id != keep {
			delete(m.data, id)
		}
	}
	return nil
}

type memUsers struct {
	byID   map[int64]*User
	nextID int64
}

func newMemUsers(users ...*User) *memUsers {
	m := &memUsers{byID: make(map[int64]*User)}
	for _, u := range users {
		m.nextID++
		u.ID = m.nextID
		m.byID[u.ID] = u
	}
	return m
}

func (m *memUsers) Create(_ context.Context, u *User) error {
	for _, existing := range m.byID {
		if existing.Email == u.Email || existing.Username == u.Username {
			return ErrEmailTaken
		}
	}
	m.nextID++
	u.ID = m.nextID
	m.byID[u.ID] = u
	return nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *memUsers) FindByID(_ context.Context, id int64) (*User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) UpdatePasswordHash(_ context.Context, id int64, hash string) error {
	u, ok := m.byID[id]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = hash
	return nil
}

// testHasher keeps tests fast.
func testHasher() *BcryptHasher {
	return NewBcryptHasher(bcrypt.MinCost)
}
