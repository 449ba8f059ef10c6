package controller

import (
	"context"

	"corp_learning_backend/internal/service"
	"corp_learning_backend/internal/util"
	"corp_learning_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AssessmentController struct {
	Service *service.AssessmentService
	Hub     *service.AttemptHub
}

func NewAssessmentController(svc *service.AssessmentService, hub *service.AttemptHub) *AssessmentController {
	return &AssessmentController{Service: svc, Hub: hub}
}

// SubmitAnswerRequest 单题作答
// swagger:model SubmitAnswerRequest
type SubmitAnswerRequest struct {
	SelectedOptionIDs []string `json:"selectedOptionIds"`
}

// @Summary 获取测评列表
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param courseId query string false "按课程筛选"
// @Success 200 {object} util.Response{data=[]model.Assessment}
// @Router /api/assessments [get]
func (c *AssessmentController) ListAssessments(ctx *gin.Context) {
	list, err := c.Service.ListAssessments(ctx.Request.Context(), ctx.Query("courseId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 获取测评详情
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Failure 404 {object} util.Response
// @Router /api/assessments/{id} [get]
func (c *AssessmentController) GetAssessment(ctx *gin.Context) {
	a, err := c.Service.GetAssessment(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 开始作答
// @Description 抽题并开始倒计时；进行中的旧作答被放弃
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Success 201 {object} util.Response{data=service.AttemptView}
// @Failure 404 {object} util.Response
// @Failure 502 {object} util.Response
// @Router /api/assessments/{id}/attempts [post]
func (c *AssessmentController) StartAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	view, err := c.Service.StartAssessment(ctx.Request.Context(), claims.UserID, ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// @Summary 当前作答
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Router /api/attempts/current [get]
func (c *AssessmentController) CurrentAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	util.Success(ctx, c.Service.CurrentAttempt(ctx.Request.Context(), claims.UserID))
}

// @Summary 提交单题答案
// @Tags 测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path string true "题目ID"
// @Param body body SubmitAnswerRequest true "选项"
// @Success 200 {object} util.Response{data=service.AttemptView}
// @Failure 400 {object} util.Response "选项不属于该题"
// @Failure 404 {object} util.Response "题目不在本次作答中"
// @Failure 409 {object} util.Response "没有进行中的作答"
// @Router /api/attempts/current/answers/{questionId} [put]
func (c *AssessmentController) SubmitAnswer(ctx *gin.Context) {
	var req SubmitAnswerRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	claims := util.GetUserFromContext(ctx)
	view, err := c.Service.SubmitAnswer(ctx.Request.Context(), claims.UserID, ctx.Param("questionId"), req.SelectedOptionIDs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// @Summary 交卷
// @Description 判分并返回结果；重复提交返回同一结果
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.AttemptResult}
// @Failure 409 {object} util.Response "没有进行中的作答"
// @Router /api/attempts/current/submit [post]
func (c *AssessmentController) SubmitAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	res, err := c.Service.SubmitAssessment(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 放弃作答
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response
// @Router /api/attempts/current [delete]
func (c *AssessmentController) ClearAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	c.Service.ClearAttempt(ctx.Request.Context(), claims.UserID)
	util.Success(ctx, nil)
}

// @Summary 作答结果
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Param attemptId path string true "作答ID"
// @Success 200 {object} util.Response{data=model.AttemptResult}
// @Failure 404 {object} util.Response
// @Router /api/attempts/{attemptId}/result [get]
func (c *AssessmentController) GetResult(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	res, err := c.Service.FetchResults(ctx.Request.Context(), claims.UserID, ctx.Param("attemptId"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 作答历史
// @Tags 测评
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.AttemptRecord}
// @Router /api/attempts [get]
func (c *AssessmentController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	recs, err := c.Service.AttemptHistory(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, recs)
}

// @Summary 作答倒计时推送
// @Description websocket；服务端推送 TICK / ANSWERED / FINALIZED / ABANDONED，客户端可发送 ANSWER
// @Tags 测评
// @Param token query string true "JWT令牌"
// @Router /api/attempts/current/ws [get]
func (c *AssessmentController) AttemptSocket(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	userID := claims.UserID
	err := c.Hub.ServeWS(ctx.Writer, ctx.Request, userID, func(questionID string, selected []string) error {
		// 连接的生命周期长于本次 HTTP 请求，不能沿用请求 ctx
		_, err := c.Service.SubmitAnswer(context.Background(), userID, questionID, selected)
		return err
	})
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.String("userId", userID), zap.Error(err))
	}
}

// Admin

// @Summary 创建测评
// @Tags 管理-测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.AssessmentRequest true "测评信息"
// @Success 201 {object} util.Response{data=model.Assessment}
// @Router /api/admin/assessments [post]
func (c *AssessmentController) CreateAssessment(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.Service.CreateAssessment(ctx.Request.Context(), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, a)
}

// @Summary 更新测评
// @Tags 管理-测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Param body body service.AssessmentRequest true "测评信息"
// @Success 200 {object} util.Response{data=model.Assessment}
// @Router /api/admin/assessments/{id} [put]
func (c *AssessmentController) UpdateAssessment(ctx *gin.Context) {
	var req service.AssessmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	a, err := c.Service.UpdateAssessment(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, a)
}

// @Summary 删除测评
// @Tags 管理-测评
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response
// @Router /api/admin/assessments/{id} [delete]
func (c *AssessmentController) DeleteAssessment(ctx *gin.Context) {
	if err := c.Service.DeleteAssessment(ctx.Request.Context(), ctx.Param("id")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 题库列表（含正确答案）
// @Tags 管理-测评
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/admin/assessments/{id}/questions [get]
func (c *AssessmentController) ListQuestions(ctx *gin.Context) {
	qs, err := c.Service.ListQuestions(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// @Summary 新增题目
// @Tags 管理-测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "测评ID"
// @Param body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "题目定义不一致"
// @Router /api/admin/assessments/{id}/questions [post]
func (c *AssessmentController) CreateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.CreateQuestion(ctx.Request.Context(), ctx.Param("id"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 更新题目
// @Tags 管理-测评
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param questionId path string true "题目ID"
// @Param body body service.QuestionRequest true "题目"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/questions/{questionId} [put]
func (c *AssessmentController) UpdateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	q, err := c.Service.UpdateQuestion(ctx.Request.Context(), ctx.Param("questionId"), &req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 管理-测评
// @Security ApiKeyAuth
// @Param questionId path string true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questions/{questionId} [delete]
func (c *AssessmentController) DeleteQuestion(ctx *gin.Context) {
	if err := c.Service.DeleteQuestion(ctx.Request.Context(), ctx.Param("questionId")); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
