package controller

import (
	"examhub_backend/internal/model"
	"examhub_backend/internal/repository"
	"examhub_backend/internal/service"
	"examhub_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	Exams  *service.ExamService
	Stats  *service.ExamStatsService
	Export *service.ExportService
}

func NewExamController(exams *service.ExamService, stats *service.ExamStatsService, export *service.ExportService) *ExamController {
	return &ExamController{Exams: exams, Stats: stats, Export: export}
}

type UpdateStatusReq struct {
	Status model.ExamStatus `json:"status" binding:"required,examstatus"`
}

// @Summary 创建考试
// @Tags 考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.ExamReq true "考试信息"
// @Success 201 {object} util.Response{data=model.Exam}
// @Router /api/teacher/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.ExamReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.Exams.CreateExam(ctx.Request.Context(), actor, req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// @Summary 获取考试列表
// @Tags 考试管理
// @Produce json
// @Security BearerAuth
// @Param courseId query int false "课程ID"
// @Param status query string false "状态"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/teacher/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	courseID, _ := strconv.ParseUint(ctx.Query("courseId"), 10, 64)

	res, err := c.Exams.ListExams(ctx.Request.Context(), actor, repository.ExamFilter{
		CourseID: uint(courseID),
		Status:   model.ExamStatus(ctx.Query("status")),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: res.Exams, Total: res.Total, Page: res.Page, Limit: res.Limit})
}

// @Summary 获取考试详情（含答案）
// @Tags 考试管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/teacher/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	exam, err := c.Exams.GetExam(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// @Summary 更新考试
// @Description 整体替换考试字段与题目
// @Tags 考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Param body body service.ExamReq true "考试信息"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/teacher/exams/{id} [put]
func (c *ExamController) UpdateExam(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req service.ExamReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.Exams.UpdateExam(ctx.Request.Context(), actor, ctx.Param("id"), req)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// @Summary 修改考试状态
// @Tags 考试管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Param body body UpdateStatusReq true "目标状态"
// @Success 200 {object} util.Response{data=model.Exam}
// @Router /api/teacher/exams/{id}/status [patch]
func (c *ExamController) UpdateStatus(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var req UpdateStatusReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	exam, err := c.Exams.UpdateStatus(ctx.Request.Context(), actor, ctx.Param("id"), req.Status)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// @Summary 考试成绩统计
// @Tags 考试管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Param passingScore query int false "及格分，默认取考试设置"
// @Success 200 {object} util.Response{data=service.ExamStatsReport}
// @Router /api/teacher/exams/{id}/stats [get]
func (c *ExamController) GetStats(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	var passingScore *int
	if v := ctx.Query("passingScore"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			util.BadRequest(ctx, "passingScore must be a non-negative integer")
			return
		}
		passingScore = &n
	}

	examID := ctx.Param("id")
	if _, err := c.Exams.GetExam(ctx.Request.Context(), actor, examID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}

	report, err := c.Stats.ComputeExamStats(ctx.Request.Context(), examID, passingScore)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// @Summary 导出考试成绩
// @Description 生成CSV并上传到对象存储
// @Tags 考试管理
// @Produce json
// @Security BearerAuth
// @Param id path string true "考试ID"
// @Success 200 {object} util.Response{data=service.ExportResult}
// @Router /api/teacher/exams/{id}/export [post]
func (c *ExamController) ExportResults(ctx *gin.Context) {
	actor, ok := util.IdentityFromContext(ctx)
	if !ok {
		util.Unauthorized(ctx)
		return
	}

	res, err := c.Export.ExportResults(ctx.Request.Context(), actor, ctx.Param("id"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
