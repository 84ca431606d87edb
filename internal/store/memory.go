// Package store — memory.go хранит всё в картах под мьютексом.
package store

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Memory — реализация Store в памяти. Всё теряется при рестарте.
type Memory struct {
	mu      sync.Mutex
	strings map[string]string
	sets    map[string]map[string]int64
}

// NewMemory создаёт пустое хранилище.
func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]string),
		sets:    make(map[string]map[string]int64),
	}
}

func (m *Memory) ZIncrBy(ctx context.Context, set, member string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[set]
	if !ok {
		s = make(map[string]int64)
		m.sets[set] = s
	}
	s[member] += delta
	return s[member], nil
}

func (m *Memory) ZScore(ctx context.Context, set, member string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	score, ok := m.sets[set][member]
	return score, ok, nil
}

func (m *Memory) ZAdd(ctx context.Context, set, member string, score int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[set]
	if !ok {
		s = make(map[string]int64)
		m.sets[set] = s
	}
	s[member] = score
	return nil
}

func (m *Memory) ZRem(ctx context.Context, set string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range members {
		delete(m.sets[set], member)
	}
	return nil
}

// sorted возвращает элементы по возрастанию счёта, при равенстве по имени.
func (m *Memory) sorted(set string) []Member {
	out := make([]Member, 0, len(m.sets[set]))
	for member, score := range m.sets[set] {
		out = append(out, Member{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

func (m *Memory) ZRange(ctx context.Context, set string, start, stop int, desc bool) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(set)
	if desc {
		for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
			all[i], all[j] = all[j], all[i]
		}
	}
	lo, hi, ok := rankBounds(start, stop, len(all))
	if !ok {
		return nil, nil
	}
	return append([]Member(nil), all[lo:hi]...), nil
}

func (m *Memory) ZRangeByScore(ctx context.Context, set string, min, max int64) ([]Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Member
	for _, item := range m.sorted(set) {
		if item.Score >= min && item.Score <= max {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *Memory) ZCard(ctx context.Context, set string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sets[set]), nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.strings[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = value
	return nil
}

func (m *Memory) SetNX(ctx context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.strings[key]; ok {
		return false, nil
	}
	m.strings[key] = value
	return true, nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.strings, key)
	}
	return nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.strings[key]
	return ok, nil
}

func (m *Memory) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var current int64
	if raw, ok := m.strings[key]; ok {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("значение %s не число: %w", key, err)
		}
		current = v
	}
	current += delta
	m.strings[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (m *Memory) DelPrefix(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.strings {
		if strings.HasPrefix(key, prefix) {
			delete(m.strings, key)
			n++
		}
	}
	return n, nil
}
