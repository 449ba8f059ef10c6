package controller

import (
	"fmt"

	"corp_learning_backend/internal/service"
	"corp_learning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	Service *service.CourseService
}

func NewCourseController(svc *service.CourseService) *CourseController {
	return &CourseController{Service: svc}
}

// @Summary 课程列表
// @Description 课程目录，附带当前学员的选课与完成进度
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Course}
// @Failure 502 {object} util.Response
// @Router /api/courses [get]
func (c *CourseController) ListCourses(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courses, err := c.Service.ListCourses(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, courses)
}

// @Summary 课程详情
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id} [get]
func (c *CourseController) GetCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.Service.GetCourse(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 选课
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/courses/{id}/enroll [post]
func (c *CourseController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.Service.Enroll(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 完成课时
// @Description 标记课时完成并返回重算进度后的课程
// @Tags 课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Failure 404 {object} util.Response "课程/模块/课时不存在"
// @Failure 502 {object} util.Response "持久化失败，进度未变更"
// @Router /api/courses/{id}/modules/{moduleId}/lessons/{lessonId}/complete [post]
func (c *CourseController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	course, err := c.Service.MarkLessonComplete(ctx.Request.Context(), claims.UserID,
		ctx.Param("id"), ctx.Param("moduleId"), ctx.Param("lessonId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// Admin

// @Summary 课程树（管理）
// @Tags 管理-课程
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/admin/courses/{id} [get]
func (c *CourseController) GetCourseTree(ctx *gin.Context) {
	course, err := c.Service.GetCourseTree(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 创建课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course}
// @Router /api/admin/courses [post]
func (c *CourseController) CreateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.CreateCourse(ctx.Request.Context(), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, course)
}

// @Summary 更新课程
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course}
// @Router /api/admin/courses/{id} [put]
func (c *CourseController) UpdateCourse(ctx *gin.Context) {
	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	course, err := c.Service.UpdateCourse(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, course)
}

// @Summary 删除课程
// @Tags 管理-课程
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id} [delete]
func (c *CourseController) DeleteCourse(ctx *gin.Context) {
	if err := c.Service.DeleteCourse(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 新增模块
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param body body service.ModuleRequest true "模块信息"
// @Success 201 {object} util.Response{data=model.Module}
// @Router /api/admin/courses/{id}/modules [post]
func (c *CourseController) AddModule(ctx *gin.Context) {
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m, err := c.Service.AddModule(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, m)
}

// @Summary 更新模块
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param body body service.ModuleRequest true "模块信息"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/admin/courses/{id}/modules/{moduleId} [put]
func (c *CourseController) UpdateModule(ctx *gin.Context) {
	var req service.ModuleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m, err := c.Service.UpdateModule(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// @Summary 删除模块
// @Tags 管理-课程
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/modules/{moduleId} [delete]
func (c *CourseController) DeleteModule(ctx *gin.Context) {
	if err := c.Service.DeleteModule(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 新增课时
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param body body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson}
// @Router /api/admin/courses/{id}/modules/{moduleId}/lessons [post]
func (c *CourseController) AddLesson(ctx *gin.Context) {
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	l, err := c.Service.AddLesson(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, l)
}

// @Summary 更新课时
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param lessonId path string true "课时ID"
// @Param body body service.LessonRequest true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/admin/courses/{id}/modules/{moduleId}/lessons/{lessonId} [put]
func (c *CourseController) UpdateLesson(ctx *gin.Context) {
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	l, err := c.Service.UpdateLesson(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), ctx.Param("lessonId"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, l)
}

// @Summary 删除课时
// @Tags 管理-课程
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param lessonId path string true "课时ID"
// @Success 200 {object} util.Response
// @Router /api/admin/courses/{id}/modules/{moduleId}/lessons/{lessonId} [delete]
func (c *CourseController) DeleteLesson(ctx *gin.Context) {
	if err := c.Service.DeleteLesson(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), ctx.Param("lessonId")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 调整课时顺序
// @Tags 管理-课程
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param body body service.ReorderRequest true "新的课时顺序"
// @Success 200 {object} util.Response{data=model.Module}
// @Router /api/admin/courses/{id}/modules/{moduleId}/lessons/order [put]
func (c *CourseController) ReorderLessons(ctx *gin.Context) {
	var req service.ReorderRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	m, err := c.Service.ReorderLessons(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), req.LessonIDs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, m)
}

// @Summary 上传课时资料
// @Description 支持视频与 PDF；视频时长自动探测
// @Tags 管理-课程
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "课程ID"
// @Param moduleId path string true "模块ID"
// @Param lessonId path string true "课时ID"
// @Param file formData file true "资料文件"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Router /api/admin/courses/{id}/modules/{moduleId}/lessons/{lessonId}/upload [post]
func (c *CourseController) UploadLessonContent(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}
	if fileHeader.Size > util.MaxLessonUploadSize {
		util.BadRequest(ctx, fmt.Sprintf("file exceeds %d MB", util.MaxLessonUploadSize>>20))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer file.Close()

	l, err := c.Service.UploadLessonContent(ctx.Request.Context(), ctx.Param("id"), ctx.Param("moduleId"), ctx.Param("lessonId"), fileHeader.Filename, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, l)
}
