package controller

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"course_platform_backend/internal/service"
	"course_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService  *service.CourseService
	StorageService *service.StorageService
}

func NewCourseController(courseService *service.CourseService, storageService *service.StorageService) *CourseController {
	return &CourseController{
		CourseService:  courseService,
		StorageService: storageService,
	}
}

// CreateCourse godoc
// @Summary 创建课程
// @Tags 课程模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CourseReq true "课程信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.CreateCourse(user.UserID, req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// UpdateCourse godoc
// @Summary 更新课程
// @Tags 课程模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Param body body service.CourseReq true "课程信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.UpdateCourse(ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// DeleteCourse godoc
// @Summary 删除课程及其全部课时、报名与测试数据
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.CourseService.DeleteCourse(ctx.Param("id")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// ListCourses godoc
// @Summary 获取课程列表
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	// 学生只能看到已发布的课程
	var teacherID uint
	publishedOnly := true
	if user.Role != "student" {
		publishedOnly = false
		teacherID = user.UserID
	}

	courses, total, err := c.CourseService.ListCourses(teacherID, publishedOnly, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: courses, Total: total, Page: page, Limit: limit})
}

// GetCourse godoc
// @Summary 获取课程详情及课时列表
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	course, lessons, err := c.CourseService.GetCourse(ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"course": course, "lessons": lessons})
}

// AddLesson godoc
// @Summary 向课程添加课时
// @Tags 课程模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Param body body service.LessonReq true "课时信息"
// @Success 201 {object} util.Response
// @Router /api/teacher/courses/{id}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.AddLesson(ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, lesson)
}

// UpdateLesson godoc
// @Summary 更新课时
// @Tags 课程模块
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "课时ID"
// @Param body body service.LessonReq true "课时信息"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	var req service.LessonReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.CourseService.UpdateLesson(ctx.Param("id"), req)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// DeleteLesson godoc
// @Summary 删除课时及其测试数据
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	if err := c.CourseService.DeleteLesson(ctx.Param("id")); err != nil {
		util.DomainError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// UploadLessonAttachment godoc
// @Summary 上传课时附件
// @Tags 课程模块
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param id path string true "课时ID"
// @Param file formData file true "附件文件"
// @Success 200 {object} util.Response
// @Router /api/teacher/lessons/{id}/attachment [post]
func (c *CourseController) UploadLessonAttachment(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("lessons/%d%s", time.Now().UnixNano(), filepath.Ext(fileHeader.Filename))
	contentType := fileHeader.Header.Get("Content-Type")

	url, err := c.StorageService.Upload(ctx.Request.Context(), filename, file, fileHeader.Size, contentType)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	lesson, err := c.CourseService.SetLessonAttachment(ctx.Param("id"), url)
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// Enroll godoc
// @Summary 报名课程
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Param id path string true "课程ID"
// @Success 201 {object} util.Response
// @Failure 409 {object} util.Response "已报名"
// @Router /api/student/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollment, err := c.CourseService.Enroll(user.UserID, ctx.Param("id"))
	if err != nil {
		util.DomainError(ctx, err)
		return
	}

	util.Created(ctx, enrollment)
}

// MyEnrollments godoc
// @Summary 获取我的报名列表
// @Tags 课程模块
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/student/enrollments [get]
func (c *CourseController) MyEnrollments(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	enrollments, err := c.CourseService.ListEnrollments(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, enrollments)
}
