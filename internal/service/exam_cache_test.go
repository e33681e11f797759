package service

import (
	"context"
	"errors"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository/memstore"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapCache struct {
	mu      sync.Mutex
	exams   map[string]model.Exam
	hits    int
	failGet bool
}

func newMapCache() *mapCache { return &mapCache{exams: make(map[string]model.Exam)} }

func (c *mapCache) GetExam(_ context.Context, id string) (*model.Exam, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGet {
		return nil, errors.New("redis down")
	}
	e, ok := c.exams[id]
	if !ok {
		return nil, nil
	}
	c.hits++
	return &e, nil
}

func (c *mapCache) SetExam(_ context.Context, exam *model.Exam) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.exams[exam.ID] = *exam
	return nil
}

func (c *mapCache) InvalidateExam(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.exams, id)
	return nil
}

func TestCachedExamStore_ReadThroughAndInvalidate(t *testing.T) {
	store := memstore.New()
	exam := seedExam(t, store, nil)
	cache := newMapCache()
	cached := NewCachedExamStore(store, cache)

	_, err := cached.FindExamByID(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Zero(t, cache.hits)

	got, err := cached.FindExamByID(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, model.ExamActive, got.Status)

	require.NoError(t, cached.UpdateExamStatus(context.Background(), exam.ID,
		[]model.ExamStatus{model.ExamActive}, model.ExamCompleted))
	assert.NotContains(t, cache.exams, exam.ID)

	got, err = cached.FindExamByID(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ExamCompleted, got.Status)
}

func TestCachedExamStore_FallsBackOnCacheError(t *testing.T) {
	store := memstore.New()
	exam := seedExam(t, store, nil)
	cache := newMapCache()
	cache.failGet = true

	got, err := NewCachedExamStore(store, cache).FindExamByID(context.Background(), exam.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ID, got.ID)
}

func TestCachedExamStore_NilCacheIsPassthrough(t *testing.T) {
	store := memstore.New()
	assert.Same(t, ExamStore(store), NewCachedExamStore(store, nil))
}
