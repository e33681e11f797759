package repository

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type SubmissionRepository struct {
	DB *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) *SubmissionRepository {
	return &SubmissionRepository{DB: db}
}

func (r *SubmissionRepository) FindSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSubmissionNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find submission %s", id)
	}
	return &s, nil
}

// FindLatestSubmission returns the highest attempt, or nil when the student never started.
func (r *SubmissionRepository) FindLatestSubmission(ctx context.Context, examID string, studentID uint) (*model.Submission, error) {
	var s model.Submission
	err := r.DB.WithContext(ctx).
		Where("exam_id = ? AND student_id = ?", examID, studentID).
		Order("attempt desc").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find latest submission")
	}
	return &s, nil
}

// CreateOrFetchSubmission inserts s, relying on the (exam, student, attempt)
// unique index. When another request won the insert, the stored row is
// returned with created=false.
func (r *SubmissionRepository) CreateOrFetchSubmission(ctx context.Context, s *model.Submission) (*model.Submission, bool, error) {
	err := r.DB.WithContext(ctx).Create(s).Error
	if err == nil {
		return s, true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, false, errors.Wrap(err, "create submission")
	}

	var existing model.Submission
	err = r.DB.WithContext(ctx).
		Where("exam_id = ? AND student_id = ? AND attempt = ?", s.ExamID, s.StudentID, s.Attempt).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// the conflicting row is soft-deleted and cannot be resumed
		return nil, false, util.ErrConflict
	}
	if err != nil {
		return nil, false, errors.Wrap(err, "fetch conflicting submission")
	}
	return &existing, false, nil
}

// ConditionalUpdateSubmission writes the result fields of s only while the
// stored status is one of expected.
func (r *SubmissionRepository) ConditionalUpdateSubmission(ctx context.Context, s *model.Submission, expected ...model.SubmissionStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Submission{}).
		Where("id = ? AND status IN ?", s.ID, expected).
		Updates(map[string]interface{}{
			"answers":      s.Answers,
			"score":        s.Score,
			"total_points": s.TotalPoints,
			"percentage":   s.Percentage,
			"submitted_at": s.SubmittedAt,
			"time_spent":   s.TimeSpent,
			"status":       s.Status,
			"is_late":      s.IsLate,
			"graded_by":    s.GradedBy,
			"graded_at":    s.GradedAt,
			"feedback":     s.Feedback,
		})
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update submission %s", s.ID)
	}
	if res.RowsAffected == 0 {
		return util.ErrConflict
	}
	return nil
}

func (r *SubmissionRepository) ListSubmissionsForExam(ctx context.Context, examID string) ([]model.Submission, error) {
	var ss []model.Submission
	err := r.DB.WithContext(ctx).
		Where("exam_id = ?", examID).
		Order("created_at asc, attempt asc").
		Find(&ss).Error
	return ss, errors.Wrap(err, "list submissions")
}
