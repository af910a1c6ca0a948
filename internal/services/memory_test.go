package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/vitalux/internal/models"
)

// memStore is an in-memory stand-in for the gorm repositories, good enough
// to exercise the engine without a database.
type memStore struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	entries []models.PointLedgerEntry
	sales   map[uuid.UUID]float64
	clock   time.Time

	// tierConflicts forces the next n UpdateTier calls to report a lost
	// race, simulating a concurrent evaluation.
	tierConflicts int
	tierWrites    int
}

func newMemStore() *memStore {
	return &memStore{
		users: map[uuid.UUID]*models.User{},
		sales: map[uuid.UUID]float64{},
		clock: time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC),
	}
}

func (s *memStore) addUser(name string, referrerID *uuid.UUID) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user := &models.User{
		DisplayName:  name,
		ReferralCode: name + "-code",
		ReferrerID:   referrerID,
	}
	user.ID = uuid.New()
	user.CreatedAt = s.clock.Add(time.Duration(len(s.users)) * time.Minute)
	s.users[user.ID] = user
	return user
}

func (s *memStore) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memStore) Downline(_ context.Context, id uuid.UUID) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var users []models.User
	for _, user := range s.users {
		if user.ReferrerID != nil && *user.ReferrerID == id {
			users = append(users, *user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *memStore) Snapshot(context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]models.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

func (s *memStore) UpdateTier(_ context.Context, id uuid.UUID, version int64, percent int, validUntil time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return false, ErrUserNotFound
	}
	if s.tierConflicts > 0 {
		s.tierConflicts--
		user.TierVersion++
		return false, nil
	}
	if user.TierVersion != version {
		return false, nil
	}
	user.DiscountPercent = percent
	user.DiscountValidUntil = &validUntil
	user.TierVersion++
	s.tierWrites++
	return true, nil
}

func (s *memStore) ExpiredTiers(_ context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []uuid.UUID
	for _, user := range s.users {
		if user.DiscountValidUntil != nil && user.DiscountValidUntil.Before(now) {
			ids = append(ids, user.ID)
		}
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func (s *memStore) Append(_ context.Context, entry *models.PointLedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.entries {
		if existing.OrderID == entry.OrderID && existing.UserID == entry.UserID &&
			existing.Scope == entry.Scope && existing.EntryType == entry.EntryType {
			return ErrDuplicateEntry
		}
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *memStore) SumInWindow(_ context.Context, userID uuid.UUID, scope string, from, to time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, entry := range s.entries {
		if entry.UserID != userID || entry.Scope != scope {
			continue
		}
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		total += entry.Amount
	}
	return total, nil
}

func (s *memStore) EntriesByOrder(_ context.Context, orderID uuid.UUID) ([]models.PointLedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.PointLedgerEntry
	for _, entry := range s.entries {
		if entry.OrderID == orderID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.PointLedgerEntry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.PointLedgerEntry
	for _, entry := range s.entries {
		if entry.UserID == userID {
			entries = append(entries, entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.After(entries[j].CreatedAt) })

	total := int64(len(entries))
	if offset >= len(entries) {
		return nil, total, nil
	}
	entries = entries[offset:]
	if limit < len(entries) {
		entries = entries[:limit]
	}
	return entries, total, nil
}

func (s *memStore) TotalsByUser(context.Context, time.Time, time.Time) (map[uuid.UUID]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[uuid.UUID]float64, len(s.sales))
	for id, total := range s.sales {
		totals[id] = total
	}
	return totals, nil
}

func (s *memStore) entryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
