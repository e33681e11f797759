// Package memstore keeps exams and submissions in process memory. It backs
// tests and `database.driver: memory`, and honours the same uniqueness and
// conditional-update rules as the MySQL repositories.
package memstore

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository"
	"examhub_backend/internal/util"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type attemptKey struct {
	examID    string
	studentID uint
	attempt   int
}

type Store struct {
	mu          sync.RWMutex
	exams       map[string]*model.Exam
	submissions map[string]*model.Submission
	attempts    map[attemptKey]string
	now         func() time.Time
}

func New() *Store {
	return &Store{
		exams:       make(map[string]*model.Exam),
		submissions: make(map[string]*model.Submission),
		attempts:    make(map[attemptKey]string),
		now:         time.Now,
	}
}

func (s *Store) CreateExam(_ context.Context, exam *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exam.ID == "" {
		exam.ID = uuid.New().String()
	}
	now := s.now()
	exam.CreatedAt, exam.UpdatedAt = now, now
	stampQuestions(exam, now)
	s.exams[exam.ID] = copyExam(exam)
	return nil
}

func (s *Store) FindExamByID(_ context.Context, id string) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exams[id]
	if !ok {
		return nil, util.ErrExamNotFound
	}
	return copyExam(e), nil
}

func (s *Store) UpdateExam(_ context.Context, exam *model.Exam) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.exams[exam.ID]; !ok {
		return util.ErrExamNotFound
	}
	now := s.now()
	exam.UpdatedAt = now
	stampQuestions(exam, now)
	s.exams[exam.ID] = copyExam(exam)
	return nil
}

func (s *Store) UpdateExamStatus(_ context.Context, id string, from []model.ExamStatus, to model.ExamStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.exams[id]
	if !ok || !containsExamStatus(from, e.Status) {
		return util.ErrConflict
	}
	e.Status = to
	e.UpdatedAt = s.now()
	return nil
}

func (s *Store) ListExams(_ context.Context, filter repository.ExamFilter) ([]model.Exam, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Exam
	for _, e := range s.exams {
		if filter.CourseID > 0 && e.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID > 0 && e.TeacherID != filter.TeacherID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, *copyExam(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := int64(len(out))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(out) {
			return []model.Exam{}, total, nil
		}
		end := start + filter.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (s *Store) FindExamIDsToActivate(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.exams {
		if e.Status != model.ExamPublished || e.StartTime == nil || e.StartTime.After(now) {
			continue
		}
		if e.EndTime != nil && e.EndTime.Before(now) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) FindExamIDsToComplete(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, e := range s.exams {
		if e.Status != model.ExamPublished && e.Status != model.ExamActive {
			continue
		}
		if e.EndTime != nil && e.EndTime.Before(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) FindSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.submissions[id]
	if !ok {
		return nil, util.ErrSubmissionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *Store) FindLatestSubmission(_ context.Context, examID string, studentID uint) (*model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *model.Submission
	for _, sub := range s.submissions {
		if sub.ExamID != examID || sub.StudentID != studentID {
			continue
		}
		if latest == nil || sub.Attempt > latest.Attempt {
			latest = sub
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) CreateOrFetchSubmission(_ context.Context, sub *model.Submission) (*model.Submission, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := attemptKey{sub.ExamID, sub.StudentID, sub.Attempt}
	if id, ok := s.attempts[key]; ok {
		cp := *s.submissions[id]
		return &cp, false, nil
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := s.now()
	sub.CreatedAt, sub.UpdatedAt = now, now
	cp := *sub
	s.submissions[sub.ID] = &cp
	s.attempts[key] = sub.ID
	return sub, true, nil
}

func (s *Store) ConditionalUpdateSubmission(_ context.Context, sub *model.Submission, expected ...model.SubmissionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.submissions[sub.ID]
	if !ok || !containsSubmissionStatus(expected, cur.Status) {
		return util.ErrConflict
	}
	cur.Answers = sub.Answers
	cur.Score = sub.Score
	cur.TotalPoints = sub.TotalPoints
	cur.Percentage = sub.Percentage
	cur.SubmittedAt = sub.SubmittedAt
	cur.TimeSpent = sub.TimeSpent
	cur.Status = sub.Status
	cur.IsLate = sub.IsLate
	cur.GradedBy = sub.GradedBy
	cur.GradedAt = sub.GradedAt
	cur.Feedback = sub.Feedback
	cur.UpdatedAt = s.now()
	return nil
}

func (s *Store) ListSubmissionsForExam(_ context.Context, examID string) ([]model.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Submission
	for _, sub := range s.submissions {
		if sub.ExamID == examID {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			if out[i].StudentID == out[j].StudentID {
				return out[i].Attempt < out[j].Attempt
			}
			return out[i].StudentID < out[j].StudentID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// PutSubmission stores sub as-is, bypassing the lifecycle. Test fixtures use it
// to seed graded or late rows.
func (s *Store) PutSubmission(sub *model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	cp := *sub
	s.submissions[sub.ID] = &cp
	s.attempts[attemptKey{sub.ExamID, sub.StudentID, sub.Attempt}] = sub.ID
}

func stampQuestions(exam *model.Exam, now time.Time) {
	for i := range exam.Questions {
		q := &exam.Questions[i]
		q.ExamID = exam.ID
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		if q.CreatedAt.IsZero() {
			q.CreatedAt = now
		}
		q.UpdatedAt = now
	}
}

func copyExam(e *model.Exam) *model.Exam {
	cp := *e
	cp.Questions = append([]model.Question(nil), e.Questions...)
	return &cp
}

func containsExamStatus(list []model.ExamStatus, s model.ExamStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsSubmissionStatus(list []model.SubmissionStatus, s model.SubmissionStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
