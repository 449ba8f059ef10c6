package controller

import (
	"corp_learning_backend/internal/model"
	"corp_learning_backend/internal/service"
	"corp_learning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionReviewController struct {
	Service *service.QuestionReviewService
}

func NewQuestionReviewController(svc *service.QuestionReviewService) *QuestionReviewController {
	return &QuestionReviewController{Service: svc}
}

// @Summary AI 由文本生成题目
// @Tags 管理-题目审核
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.GenerateRequest true "源文本与目标位置"
// @Success 201 {object} util.Response{data=[]model.GeneratedQuestion}
// @Failure 502 {object} util.Response "AI 服务失败"
// @Router /api/admin/questions/generate/text [post]
func (c *QuestionReviewController) GenerateFromText(ctx *gin.Context) {
	var req service.GenerateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	qs, err := c.Service.GenerateFromText(ctx.Request.Context(), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, qs)
}

// @Summary AI 由文档生成题目
// @Description 支持 .txt / .md 文档与 .vtt / .srt 字幕
// @Tags 管理-题目审核
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "源文档"
// @Param courseId formData string false "课程ID"
// @Param moduleId formData string false "模块ID"
// @Param lessonId formData string false "课时ID"
// @Param assessmentId formData string false "目标测评ID"
// @Param count formData int false "题目数量"
// @Success 201 {object} util.Response{data=[]model.GeneratedQuestion}
// @Router /api/admin/questions/generate/file [post]
func (c *QuestionReviewController) GenerateFromFile(ctx *gin.Context) {
	var req service.GenerateRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
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

	qs, err := c.Service.GenerateFromFile(ctx.Request.Context(), &req, fileHeader.Filename, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, qs)
}

// @Summary 待审核题目
// @Tags 管理-题目审核
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "pending | approved | rejected"
// @Success 200 {object} util.Response{data=[]model.GeneratedQuestion}
// @Router /api/admin/questions/review [get]
func (c *QuestionReviewController) ListPending(ctx *gin.Context) {
	qs, err := c.Service.ListPending(ctx.Request.Context(), model.ReviewStatus(ctx.Query("status")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// @Summary 修改待审核题目
// @Tags 管理-题目审核
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "生成题目ID"
// @Param body body service.EditGeneratedRequest true "修改字段"
// @Success 200 {object} util.Response{data=model.GeneratedQuestion}
// @Failure 409 {object} util.Response "已审核"
// @Router /api/admin/questions/review/{id} [put]
func (c *QuestionReviewController) Edit(ctx *gin.Context) {
	var req service.EditGeneratedRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.Edit(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 通过审核
// @Description 写入目标测评题库；未指定测评时使用生成时的目标
// @Tags 管理-题目审核
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "生成题目ID"
// @Param body body service.ApproveRequest false "目标测评"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/questions/review/{id}/approve [post]
func (c *QuestionReviewController) Approve(ctx *gin.Context) {
	var req service.ApproveRequest
	// 请求体可选
	_ = ctx.ShouldBindJSON(&req)
	claims := util.GetUserFromContext(ctx)
	q, err := c.Service.Approve(ctx.Request.Context(), ctx.Param("id"), claims.UserID, req.AssessmentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 驳回
// @Tags 管理-题目审核
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "生成题目ID"
// @Param body body service.RejectRequest true "驳回意见"
// @Success 200 {object} util.Response{data=model.GeneratedQuestion}
// @Router /api/admin/questions/review/{id}/reject [post]
func (c *QuestionReviewController) Reject(ctx *gin.Context) {
	var req service.RejectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	q, err := c.Service.Reject(ctx.Request.Context(), ctx.Param("id"), claims.UserID, req.Feedback)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}
