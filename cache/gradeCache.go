// Package cache holds computed grade reports keyed by (student, course).
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
)

// GradeCache stores one computed report per (student, course).
type GradeCache interface {
	Get(ctx context.Context, studentID, courseID uint, dest interface{}) (bool, error)
	Set(ctx context.Context, studentID, courseID uint, value interface{}) error
	Invalidate(ctx context.Context, studentID, courseID uint) error
	InvalidateCourse(ctx context.Context, courseID uint) error
}

func Key(studentID, courseID uint) string {
	return fmt.Sprintf("grades:%d:%d", studentID, courseID)
}

func courseIndexKey(courseID uint) string {
	return fmt.Sprintf("grades:course:%d", courseID)
}

// NopGradeCache never stores anything.
type NopGradeCache struct{}

func (NopGradeCache) Get(context.Context, uint, uint, interface{}) (bool, error) { return false, nil }
func (NopGradeCache) Set(context.Context, uint, uint, interface{}) error         { return nil }
func (NopGradeCache) Invalidate(context.Context, uint, uint) error               { return nil }
func (NopGradeCache) InvalidateCourse(context.Context, uint) error               { return nil }

// MemoryGradeCache keeps encoded reports in process. Used by tests.
type MemoryGradeCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

type memoryEntry struct {
	courseID  uint
	payload   []byte
	expiresAt time.Time
}

func NewMemoryGradeCache(ttl time.Duration) *MemoryGradeCache {
	return &MemoryGradeCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (m *MemoryGradeCache) Get(_ context.Context, studentID, courseID uint, dest interface{}) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[Key(studentID, courseID)]
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if m.ttl > 0 && time.Now().After(entry.expiresAt) {
		_ = m.Invalidate(context.Background(), studentID, courseID)
		return false, nil
	}
	if err := sonic.Unmarshal(entry.payload, dest); err != nil {
		return false, fmt.Errorf("decode cached grades: %w", err)
	}
	return true, nil
}

func (m *MemoryGradeCache) Set(_ context.Context, studentID, courseID uint, value interface{}) error {
	payload, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode grades: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(studentID, courseID)] = memoryEntry{
		courseID:  courseID,
		payload:   payload,
		expiresAt: time.Now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryGradeCache) Invalidate(_ context.Context, studentID, courseID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, Key(studentID, courseID))
	return nil
}

func (m *MemoryGradeCache) InvalidateCourse(_ context.Context, courseID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.entries {
		if entry.courseID == courseID {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len returns the number of stored reports.
func (m *MemoryGradeCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
