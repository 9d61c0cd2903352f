package controller

import (
	"strconv"

	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type GradeController struct {
	AttemptService *service.AttemptService
}

func NewGradeController(attemptService *service.AttemptService) *GradeController {
	return &GradeController{AttemptService: attemptService}
}

// ListPendingReview godoc
// @Summary 获取待人工批改的作答列表
// @Tags 批改模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/pending-review [get]
func (c *GradeController) ListPendingReview(ctx *gin.Context) {
	submissions, err := c.AttemptService.ListPendingReview(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, submissions)
}

// ListSubmissions godoc
// @Summary 获取试卷的全部作答列表
// @Tags 批改模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id}/submissions [get]
func (c *GradeController) ListSubmissions(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	submissions, total, err := c.AttemptService.ListSubmissions(ctx.Param("id"), page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: submissions, Total: total, Page: page, Limit: limit})
}

// GetSubmission godoc
// @Summary 获取作答详情（教师视图）
// @Tags 批改模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/submissions/{id} [get]
func (c *GradeController) GetSubmission(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.AttemptService.GetAttemptDetail(user.UserID, ctx.Param("id"), true)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

type ManualGradeRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	IsCorrect  bool   `json:"isCorrect"`
	Score      *int   `json:"score" binding:"required"`
}

// ApplyManualGrade godoc
// @Summary 人工批改某题
// @Tags 批改模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param body body ManualGradeRequest true "批改信息"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response "作答尚未提交"
// @Router /api/teacher/submissions/{id}/grade [post]
func (c *GradeController) ApplyManualGrade(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req ManualGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.AttemptService.ApplyManualGrade(user.UserID, ctx.Param("id"), req.QuestionID, req.IsCorrect, *req.Score)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	monitoring.ManualGradesApplied.Inc()
	util.Success(ctx, result)
}

// DeleteSubmission godoc
// @Summary 删除一次作答及其答案记录
// @Tags 批改模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/submissions/{id} [delete]
func (c *GradeController) DeleteSubmission(ctx *gin.Context) {
	if err := c.AttemptService.DeleteSubmission(ctx.Param("id")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
