package controller

import (
	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

// CreateTest godoc
// @Summary 创建测试试卷
// @Tags 测试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课时ID"
// @Param body body service.TestReq true "试卷信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/lessons/{id}/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(user.UserID, ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, test)
}

// UpdateTest godoc
// @Summary 更新测试试卷及题目
// @Tags 测试模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Param body body service.TestReq true "试卷信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.UpdateTest(ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

// DeleteTest godoc
// @Summary 删除测试试卷及全部作答数据
// @Tags 测试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
	if err := c.TestService.DeleteTest(ctx.Param("id")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// GetTest godoc
// @Summary 获取测试试卷详情（教师视图，含答案）
// @Tags 测试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
	test, questions, err := c.TestService.GetTest(ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"test": test, "questions": questions})
}

// ListTestsByLesson godoc
// @Summary 获取课时下的测试列表
// @Tags 测试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/lessons/{id}/tests [get]
func (c *TestController) ListTestsByLesson(ctx *gin.Context) {
	tests, err := c.TestService.ListTestsByLesson(ctx.Param("id"))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, tests)
}

// GetTestForStudent godoc
// @Summary 获取测试试卷（学生视图，不含答案）
// @Tags 测试模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/student/tests/{id} [get]
func (c *TestController) GetTestForStudent(ctx *gin.Context) {
	test, questions, err := c.TestService.GetTestForStudent(ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"test": test, "questions": questions})
}
