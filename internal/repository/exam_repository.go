package repository

import (
	"context"
	"examhub_backend/internal/model"
	"examhub_backend/internal/util"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ExamFilter struct {
	CourseID  uint
	TeacherID uint
	Status    model.ExamStatus
	Page      int
	Limit     int
}

type ExamRepository struct {
	DB *gorm.DB
}

func NewExamRepository(db *gorm.DB) *ExamRepository {
	return &ExamRepository{DB: db}
}

func (r *ExamRepository) CreateExam(ctx context.Context, exam *model.Exam) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(exam).Error; err != nil {
			return err
		}
		return createQuestions(tx, exam)
	})
	return errors.Wrap(err, "create exam")
}

func (r *ExamRepository) FindExamByID(ctx context.Context, id string) (*model.Exam, error) {
	var exam model.Exam
	err := r.DB.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc")
		}).
		First(&exam, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrExamNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find exam %s", id)
	}
	return &exam, nil
}

// UpdateExam replaces the exam's fields and its whole question bank.
func (r *ExamRepository) UpdateExam(ctx context.Context, exam *model.Exam) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Omit(clause.Associations).Save(exam)
		if res.Error != nil {
			return res.Error
		}
		if err := tx.Unscoped().Where("exam_id = ?", exam.ID).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return createQuestions(tx, exam)
	})
	return errors.Wrapf(err, "update exam %s", exam.ID)
}

func (r *ExamRepository) UpdateExamStatus(ctx context.Context, id string, from []model.ExamStatus, to model.ExamStatus) error {
	res := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "update exam %s status", id)
	}
	if res.RowsAffected == 0 {
		return util.ErrConflict
	}
	return nil
}

func (r *ExamRepository) ListExams(ctx context.Context, filter ExamFilter) ([]model.Exam, int64, error) {
	query := r.DB.WithContext(ctx).Model(&model.Exam{})
	if filter.CourseID > 0 {
		query = query.Where("course_id = ?", filter.CourseID)
	}
	if filter.TeacherID > 0 {
		query = query.Where("teacher_id = ?", filter.TeacherID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count exams")
	}

	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.Limit).Limit(filter.Limit)
	}

	var exams []model.Exam
	err := query.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc")
		}).
		Order("created_at desc").
		Find(&exams).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list exams")
	}
	return exams, total, nil
}

// FindExamIDsToActivate returns published exams whose window has opened.
func (r *ExamRepository) FindExamIDsToActivate(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("status = ? AND start_time IS NOT NULL AND start_time <= ?", model.ExamPublished, now).
		Where("end_time IS NULL OR end_time >= ?", now).
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "find exams to activate")
}

// FindExamIDsToComplete returns published or active exams whose window has closed.
func (r *ExamRepository) FindExamIDsToComplete(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.Exam{}).
		Where("status IN ? AND end_time IS NOT NULL AND end_time < ?",
			[]model.ExamStatus{model.ExamPublished, model.ExamActive}, now).
		Pluck("id", &ids).Error
	return ids, errors.Wrap(err, "find exams to complete")
}

func createQuestions(tx *gorm.DB, exam *model.Exam) error {
	if len(exam.Questions) == 0 {
		return nil
	}
	for i := range exam.Questions {
		exam.Questions[i].ExamID = exam.ID
	}
	return tx.Create(&exam.Questions).Error
}
