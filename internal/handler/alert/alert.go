package alert

import (
	"coco/internal/consts"
	"coco/internal/handler"
	"coco/internal/model"
	"coco/internal/model/entity"
	"coco/internal/service"
	"coco/pkg/errors"
	"coco/pkg/errors/ecode"
	"coco/pkg/response"

	"github.com/gin-gonic/gin"
)

type AlertHandler struct {
	service service.AlertService
}

func NewAlertHandler(s service.AlertService) *AlertHandler {
	return &AlertHandler{service: s}
}

func toRuleRes(r entity.AlertRule) model.AlertRuleRes {
	res := model.AlertRuleRes{
		ID:        r.ID,
		UserID:    r.UserID,
		CoinID:    r.CoinID,
		AlertType: r.AlertType,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.ThresholdValue.Valid {
		f, _ := r.ThresholdValue.Decimal.Float64()
		res.ThresholdValue = &f
	}
	return res
}

// @Summary		规则列表
// @Param			coinId	query		string	false	"只看某个币种"
// @Success		200		{object}	response.ApiResponse{data=model.AlertRuleListRes}
// @Router			/api/v1/alerts [get]
func (h *AlertHandler) AlertList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rules, err := h.service.ListRules(ctx, handler.UserID(ctx), ctx.Query("coinId"))
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		res := model.AlertRuleListRes{Alerts: make([]model.AlertRuleRes, 0, len(rules))}
		for _, r := range rules {
			res.Alerts = append(res.Alerts, toRuleRes(r))
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		创建或更新规则，超出配额返回 409
// @Router			/api/v1/alerts [post]
func (h *AlertHandler) AlertUpsert() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.AlertRuleReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		rule, err := h.service.UpsertRule(ctx, handler.UserID(ctx), req)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, toRuleRes(*rule))
	}
}

// @Summary		按 id 修改阈值或启用状态
// @Router			/api/v1/alerts [put]
func (h *AlertHandler) AlertUpdate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.AlertRuleUpdateReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		rule, err := h.service.UpdateRule(ctx, handler.UserID(ctx), req)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, toRuleRes(*rule))
	}
}

// @Summary		删除规则：id，或 coinId+alertType；只给 coinId 时删除该币种全部规则
// @Router			/api/v1/alerts [delete]
func (h *AlertHandler) AlertDelete() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := handler.UserID(ctx)
		id := ctx.Query("id")
		coinId := ctx.Query("coinId")
		alertType := consts.AlertType(ctx.Query("alertType"))

		var (
			res model.AlertDeleteRes
			err error
		)
		switch {
		case id != "":
			res.Deleted, err = h.service.DeleteRule(ctx, userId, id)
		case coinId != "" && alertType != "":
			res.Deleted, err = h.service.DeleteRuleByKey(ctx, userId, coinId, alertType)
		case coinId != "":
			res, err = h.service.DeleteAllForCoin(ctx, userId, coinId)
		default:
			response.JSON(ctx, errors.WithCode(ecode.ValidateErr, "id or coinId is required"), nil)
			return
		}
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		用户全部规则（看板初始化），附带有生效规则的币种
// @Router			/api/v1/alerts/summary [get]
func (h *AlertHandler) AlertSummaryGet() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userId := handler.UserID(ctx)
		rules, err := h.service.ListRules(ctx, userId, "")
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		coins, err := h.service.ActiveCoins(ctx, userId)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		res := model.AlertDashboardRes{Alerts: make([]model.AlertRuleRes, 0, len(rules)), ActiveCoinIDs: coins}
		for _, r := range rules {
			res.Alerts = append(res.Alerts, toRuleRes(r))
		}
		response.JSON(ctx, nil, res)
	}
}

// @Summary		批量检查币种是否有规则、是否在持仓中
// @Router			/api/v1/alerts/summary [patch]
func (h *AlertHandler) AlertSummaryCheck() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req model.AlertSummaryReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			handler.BindErr(ctx, err)
			return
		}
		res, err := h.service.Summary(ctx, handler.UserID(ctx), req)
		if err != nil {
			handler.ServiceErr(ctx, err)
			return
		}
		response.JSON(ctx, nil, res)
	}
}
