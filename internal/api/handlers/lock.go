package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/langchou/lockgazer/internal/api/keyvox"
)

// GetLockStatus 获取锁状态
func (h *Handler) GetLockStatus(c *gin.Context) {
	status, err := h.lockService.Status(c.Request.Context(), c.Param("lockId"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

type controlLockRequest struct {
	Flag *int `json:"flag" binding:"required"` // 0 上锁, 1 开锁
}

// ControlLock 开锁/上锁
func (h *Handler) ControlLock(c *gin.Context) {
	var req controlLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	lockID := c.Param("lockId")
	if err := h.lockService.Control(c.Request.Context(), lockID, keyvox.ControlFlag(*req.Flag)); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   h.lockService.State(lockID),
	})
}

// GetLockState 获取锁状态机状态
func (h *Handler) GetLockState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.lockService.State(c.Param("lockId"))})
}

// ListLockStates 获取锁状态区间历史
func (h *Handler) ListLockStates(c *gin.Context) {
	records, err := h.lockService.StateHistory(c.Request.Context(), c.Param("lockId"), limitParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": records})
}

// ListLockSnapshots 获取锁状态历史
func (h *Handler) ListLockSnapshots(c *gin.Context) {
	snapshots, err := h.lockService.Snapshots(c.Request.Context(), c.Param("lockId"), limitParam(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshots})
}
