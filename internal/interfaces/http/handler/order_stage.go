package handler

import (
	"context"

	"github.com/erp/warehouse/internal/domain/trade"
	"github.com/gin-gonic/gin"
)

// OrderStageService is the part of the order stage service the handler uses
type OrderStageService interface {
	ListStages(ctx context.Context) ([]trade.OrderStage, error)
	AddStage(ctx context.Context, code, name string) ([]trade.OrderStage, error)
	RemoveStage(ctx context.Context, code string) ([]trade.OrderStage, error)
	ReorderStages(ctx context.Context, codes []string) ([]trade.OrderStage, error)
}

// OrderStageHandler handles the order stage pipeline
type OrderStageHandler struct {
	BaseHandler
	stages OrderStageService
}

// NewOrderStageHandler creates a new OrderStageHandler
func NewOrderStageHandler(stages OrderStageService) *OrderStageHandler {
	return &OrderStageHandler{stages: stages}
}

// AddStageRequest adds a custom stage before Ready to Ship
type AddStageRequest struct {
	Code string `json:"code" binding:"required,max=50" example:"picking"`
	Name string `json:"name" binding:"required,max=100" example:"Picking"`
}

// ReorderStagesRequest lists every custom stage code in the new order
type ReorderStagesRequest struct {
	Codes []string `json:"codes" binding:"required,min=1" example:"packing,picking"`
}

// List godoc
// @Summary      Order stage pipeline
// @Description  Custom stages in order, always ending with Ready to Ship
// @Tags         order-stages
// @Produce      json
// @Success      200  {object}  APIResponse[[]trade.OrderStage]
// @Router       /order-stages [get]
func (h *OrderStageHandler) List(c *gin.Context) {
	stages, err := h.stages.ListStages(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stages)
}

// Add godoc
// @Summary      Add an order stage
// @Tags         order-stages
// @Accept       json
// @Produce      json
// @Param        request  body  AddStageRequest  true  "Stage"
// @Success      201  {object}  APIResponse[[]trade.OrderStage]
// @Failure      409  {object}  ErrorResponse
// @Router       /order-stages [post]
func (h *OrderStageHandler) Add(c *gin.Context) {
	var req AddStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	stages, err := h.stages.AddStage(c.Request.Context(), req.Code, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, stages)
}

// Reorder godoc
// @Summary      Reorder custom stages
// @Tags         order-stages
// @Accept       json
// @Produce      json
// @Param        request  body  ReorderStagesRequest  true  "Stage codes"
// @Success      200  {object}  APIResponse[[]trade.OrderStage]
// @Failure      409  {object}  ErrorResponse
// @Router       /order-stages/order [put]
func (h *OrderStageHandler) Reorder(c *gin.Context) {
	var req ReorderStagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	stages, err := h.stages.ReorderStages(c.Request.Context(), req.Codes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stages)
}

// Remove godoc
// @Summary      Remove a custom stage
// @Tags         order-stages
// @Produce      json
// @Param        code  path  string  true  "Stage code"
// @Success      200  {object}  APIResponse[[]trade.OrderStage]
// @Failure      409  {object}  ErrorResponse
// @Router       /order-stages/{code} [delete]
func (h *OrderStageHandler) Remove(c *gin.Context) {
	stages, err := h.stages.RemoveStage(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stages)
}
