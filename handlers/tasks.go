package handlers

import (
	"net/http"

	"servana/utils"

	"github.com/gin-gonic/gin"
)

// RunTaskHandler triggers one named periodic task on demand. The tasks are
// idempotent, so running one early or twice is harmless.
func (hb *HandlerBundle) RunTaskHandler(c *gin.Context) {
	name := c.Param("name")

	if err := hb.Tasks.Run(c.Request.Context(), name); err != nil {
		utils.DomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "task": name})
}
