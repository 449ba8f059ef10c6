package controller

import (
	"corp_learning_backend/internal/service"
	"corp_learning_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ReportController struct {
	Service *service.ReportService
}

func NewReportController(svc *service.ReportService) *ReportController {
	return &ReportController{Service: svc}
}

// @Summary 课程完成情况
// @Tags 管理-报表
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CourseReport}
// @Router /api/admin/reports/courses [get]
func (c *ReportController) CourseReports(ctx *gin.Context) {
	reports, err := c.Service.CourseReports(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}

// @Summary 测评成绩
// @Tags 管理-报表
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.AssessmentReport}
// @Router /api/admin/reports/assessments [get]
func (c *ReportController) AssessmentReports(ctx *gin.Context) {
	reports, err := c.Service.AssessmentReports(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, reports)
}

// @Summary 报表快照
// @Description 定时任务生成的缓存快照，缓存缺失时即时计算
// @Tags 管理-报表
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.ReportSnapshot}
// @Router /api/admin/reports/snapshot [get]
func (c *ReportController) Snapshot(ctx *gin.Context) {
	snap, err := c.Service.Snapshot(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, snap)
}
