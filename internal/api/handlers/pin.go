package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/langchou/lockgazer/internal/api/keyvox"
)

// ListUnits 获取房间列表
func (h *Handler) ListUnits(c *gin.Context) {
	units, err := h.pinService.ListUnits(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": units})
}

// ListPins 获取锁的密码列表
func (h *Handler) ListPins(c *gin.Context) {
	start, err := parseTimeParam(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid start time"})
		return
	}
	end, err := parseTimeParam(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid end time"})
		return
	}

	list, err := h.pinService.ListPins(c.Request.Context(), keyvox.PinListQuery{
		LockID:   c.Param("lockId"),
		Start:    start,
		End:      end,
		Position: c.Query("position"),
		Records:  c.Query("records"),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": list.Pins,
		"pagination": gin.H{
			"position": list.Position,
			"records":  list.Records,
		},
	})
}

type createPinRequest struct {
	UnitID     string     `json:"unitId" binding:"required"`
	PinCode    string     `json:"pinCode" binding:"required"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
	TargetName string     `json:"targetName"`
}

// CreatePin 创建密码
func (h *Handler) CreatePin(c *gin.Context) {
	var req createPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	params := keyvox.CreatePinRequest{
		UnitID:     req.UnitID,
		PinCode:    req.PinCode,
		TargetName: req.TargetName,
	}
	if req.Start != nil {
		params.Start = *req.Start
	}
	if req.End != nil {
		params.End = *req.End
	}

	pin, err := h.pinService.CreatePin(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": pin})
}

type changePinRequest struct {
	PinCode    *string    `json:"pinCode"`
	TargetName *string    `json:"targetName"`
	Start      *time.Time `json:"start"`
	End        *time.Time `json:"end"`
}

// ChangePin 修改密码，只修改请求中出现的字段
func (h *Handler) ChangePin(c *gin.Context) {
	var req changePinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.pinService.ChangePin(c.Request.Context(), keyvox.ChangePinRequest{
		PinID:      c.Param("pinId"),
		PinCode:    req.PinCode,
		TargetName: req.TargetName,
		Start:      req.Start,
		End:        req.End,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeletePin 停用密码
func (h *Handler) DeletePin(c *gin.Context) {
	if err := h.pinService.DeletePin(c.Request.Context(), c.Param("pinId")); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetPinStatus 获取密码状态
func (h *Handler) GetPinStatus(c *gin.Context) {
	status, err := h.pinService.PinStatus(c.Request.Context(), c.Param("pinId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

// ListPinEvents 获取操作审计记录
func (h *Handler) ListPinEvents(c *gin.Context) {
	events, err := h.pinService.Events(c.Request.Context(), c.Query("pin_id"), limitParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}
