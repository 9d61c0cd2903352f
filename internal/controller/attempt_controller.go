package controller

import (
	"strconv"

	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"
	"course_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService}
}

// StartAttempt godoc
// @Summary 开始一次测试作答
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response "已有进行中的作答"
// @Router /api/student/tests/{id}/attempts [post]
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	submission, err := c.AttemptService.StartAttempt(user.UserID, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, submission)
}

type RecordAnswerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	AnswerText string `json:"answerText"`
}

// RecordAnswer godoc
// @Summary 记录或覆盖某题的作答
// @Tags 作答模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Param body body RecordAnswerRequest true "作答内容"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response "作答已结束"
// @Router /api/student/attempts/{id}/answers [put]
func (c *AttemptController) RecordAnswer(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req RecordAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	answer, err := c.AttemptService.RecordAnswer(user.UserID, ctx.Param("id"), req.QuestionID, req.AnswerText)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, answer)
}

// FinalizeAttempt godoc
// @Summary 提交作答并评分
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Failure 422 {object} util.Response "作答已提交过"
// @Router /api/student/attempts/{id}/finalize [post]
func (c *AttemptController) FinalizeAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	result, err := c.AttemptService.FinalizeAttempt(user.UserID, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	monitoring.AttemptsFinalized.WithLabelValues(strconv.FormatBool(result.RequiresManualReview)).Inc()
	util.Success(ctx, result)
}

// GetAttempt godoc
// @Summary 获取作答详情
// @Tags 作答模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/student/attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.AttemptService.GetAttemptDetail(user.UserID, ctx.Param("id"), false)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}
