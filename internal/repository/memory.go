package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"restaurant-pos/internal/domain"
)

// Memory is an in-process Repository. It backs the offline cache and runs
// the terminal without a database.
type Memory[T Entity] struct {
	entity string
	mu     sync.RWMutex
	items  map[string]T
}

func NewMemory[T Entity](entity string, seed ...T) *Memory[T] {
	m := &Memory[T]{entity: entity, items: make(map[string]T, len(seed))}
	for _, v := range seed {
		m.items[v.EntityID()] = v
	}
	return m
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s %s: %w", m.entity, id, ErrNotFound)
	}
	return v, nil
}

// List returns values ordered by id.
func (m *Memory[T]) List(_ context.Context) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.items))
	for _, v := range m.items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out, nil
}

func (m *Memory[T]) Create(_ context.Context, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[v.EntityID()]; ok {
		return fmt.Errorf("%s %s already exists", m.entity, v.EntityID())
	}
	m.items[v.EntityID()] = v
	return nil
}

func (m *Memory[T]) Update(_ context.Context, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[v.EntityID()]; !ok {
		return fmt.Errorf("%s %s: %w", m.entity, v.EntityID(), ErrNotFound)
	}
	m.items[v.EntityID()] = v
	return nil
}

func (m *Memory[T]) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return fmt.Errorf("%s %s: %w", m.entity, id, ErrNotFound)
	}
	delete(m.items, id)
	return nil
}

func (m *Memory[T]) put(v T) {
	m.mu.Lock()
	m.items[v.EntityID()] = v
	m.mu.Unlock()
}

func (m *Memory[T]) remove(id string) {
	m.mu.Lock()
	delete(m.items, id)
	m.mu.Unlock()
}

func (m *Memory[T]) replace(vs []T) {
	m.mu.Lock()
	m.items = make(map[string]T, len(vs))
	for _, v := range vs {
		m.items[v.EntityID()] = v
	}
	m.mu.Unlock()
}

// MemorySales keeps sale records in memory.
type MemorySales struct {
	mu      sync.Mutex
	records []domain.SaleRecord
	// Err, when set, fails every write.
	Err error
}

func (s *MemorySales) CreateSaleRecord(_ context.Context, rec domain.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.records = append(s.records, rec)
	return nil
}

func (s *MemorySales) Records() []domain.SaleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.SaleRecord, len(s.records))
	copy(out, s.records)
	return out
}

func NewMemoryStore() *Store {
	return &Store{
		Tables:     NewMemory[domain.Table]("table"),
		Items:      NewMemory[domain.Item]("item"),
		Categories: NewMemory[domain.Category]("category"),
		Customers:  NewMemory[domain.Customer]("customer"),
		Sales:      &MemorySales{},
	}
}
