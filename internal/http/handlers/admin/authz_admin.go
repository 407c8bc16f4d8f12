package admin

import (
	"github.com/carenest-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// GetAuthzMe 获取当前管理员权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	adminID, ok := getAdminID(c)
	if !ok {
		return
	}

	roles, err := h.AuthzService.GetAdminRoles(adminID)
	if err != nil {
		respondError(c, response.CodeInternal, "admin roles fetch failed", err)
		return
	}

	response.Success(c, gin.H{
		"admin_id": adminID,
		"username": c.GetString("username"),
		"is_super": getAdminIsSuper(c),
		"roles":    roles,
	})
}
