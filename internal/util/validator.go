package util

import (
	"examhub_backend/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the exam tags to gin's binding engine.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("questiontype", func(fl validator.FieldLevel) bool {
		return model.QuestionType(fl.Field().String()).Valid()
	}); err != nil {
		return err
	}
	return v.RegisterValidation("examstatus", func(fl validator.FieldLevel) bool {
		return model.ExamStatus(fl.Field().String()).Valid()
	})
}
