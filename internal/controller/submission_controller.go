package controller

import (
	"examhub_backend/internal/service"
	"examhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	Grading *service.GradingService
}

func NewSubmissionController(grading *service.GradingService) *SubmissionController {
	return &SubmissionController{Grading: grading}
}

// @Summary 获取考试的全部答卷
// @Tags 阅卷
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response{data=service.SubmissionDetailList}
// @Router /api/teacher/exams/{id}/submissions [get]
func (c *SubmissionController) ListSubmissions(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	list, err := c.Grading.ListSubmissions(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 人工评分
// @Description points 以题目序号为键覆盖得分
// @Tags 阅卷
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题记录ID"
// @Param body body service.GradeReq true "评分"
// @Success 200 {object} util.Response{data=model.Submission}
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *SubmissionController) GradeSubmission(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.GradeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	sub, err := c.Grading.GradeSubmission(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
