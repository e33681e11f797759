package controller

import (
	"encoding/json"
	"examhub_backend/internal/service"
	"examhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamSessionController struct {
	Service *service.ExamSessionService
}

func NewExamSessionController(svc *service.ExamSessionService) *ExamSessionController {
	return &ExamSessionController{Service: svc}
}

type SubmitAnswersReq struct {
	Answers []json.RawMessage `json:"answers" binding:"required"`
}

// @Summary 开始考试
// @Description 创建或恢复当前学生的答题记录，返回不含答案的试卷
// @Tags 考试作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamSessionView}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response{data=util.AlreadySubmittedError}
// @Router /api/student/exams/{id}/start [post]
func (c *ExamSessionController) StartExam(ctx *gin.Context) {
	student, ok := currentStudent(ctx)
	if !ok {
		return
	}

	view, err := c.Service.StartExam(ctx.Request.Context(), ctx.Param("id"), student)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 获取答题状态
// @Tags 考试作答
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response{data=service.SessionState}
// @Router /api/student/exams/{id}/session [get]
func (c *ExamSessionController) GetSession(ctx *gin.Context) {
	student, ok := currentStudent(ctx)
	if !ok {
		return
	}

	state, err := c.Service.GetSession(ctx.Request.Context(), ctx.Param("id"), student)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, state)
}

// @Summary 提交答卷
// @Description answers 按题目原始顺序排列
// @Tags 考试作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答题记录ID"
// @Param body body SubmitAnswersReq true "答案"
// @Success 200 {object} util.Response{data=service.SubmissionResult}
// @Failure 409 {object} util.Response
// @Router /api/student/submissions/{id}/submit [post]
func (c *ExamSessionController) SubmitAnswers(ctx *gin.Context) {
	student, ok := currentStudent(ctx)
	if !ok {
		return
	}

	var req SubmitAnswersReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.Service.SubmitAnswers(ctx.Request.Context(), ctx.Param("id"), student, req.Answers)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// currentStudent writes the error response itself when the caller is not a student.
func currentStudent(ctx *gin.Context) (uint, bool) {
	id, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return 0, false
	}
	if !id.IsStudent() {
		util.Forbidden(ctx)
		return 0, false
	}
	return id.UserID, true
}
