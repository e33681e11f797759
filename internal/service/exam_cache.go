package service

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/pkg/logger"

	"go.uber.org/zap"
)

// ExamCache is implemented by cache.RedisExamCache. GetExam returns nil, nil on a miss.
type ExamCache interface {
	GetExam(ctx context.Context, id string) (*model.Exam, error)
	SetExam(ctx context.Context, exam *model.Exam) error
	InvalidateExam(ctx context.Context, id string) error
}

type cachedExamStore struct {
	ExamStore
	cache ExamCache
}

// NewCachedExamStore reads exam definitions through cache. Cache failures are
// logged and fall back to the store.
func NewCachedExamStore(store ExamStore, cache ExamCache) ExamStore {
	if cache == nil {
		return store
	}
	return &cachedExamStore{ExamStore: store, cache: cache}
}

func (s *cachedExamStore) FindExamByID(ctx context.Context, id string) (*model.Exam, error) {
	exam, err := s.cache.GetExam(ctx, id)
	if err != nil {
		logger.Log.Warn("Exam cache read failed", zap.String("examID", id), zap.Error(err))
	}
	if exam != nil {
		return exam, nil
	}

	exam, err = s.ExamStore.FindExamByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.cache.SetExam(ctx, exam); err != nil {
		logger.Log.Warn("Exam cache write failed", zap.String("examID", id), zap.Error(err))
	}
	return exam, nil
}

func (s *cachedExamStore) UpdateExam(ctx context.Context, exam *model.Exam) error {
	if err := s.ExamStore.UpdateExam(ctx, exam); err != nil {
		return err
	}
	s.invalidate(ctx, exam.ID)
	return nil
}

func (s *cachedExamStore) UpdateExamStatus(ctx context.Context, id string, from []model.ExamStatus, to model.ExamStatus) error {
	if err := s.ExamStore.UpdateExamStatus(ctx, id, from, to); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *cachedExamStore) invalidate(ctx context.Context, id string) {
	if err := s.cache.InvalidateExam(ctx, id); err != nil {
		logger.Log.Warn("Exam cache invalidation failed", zap.String("examID", id), zap.Error(err))
	}
}
