package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// ErrorWithDetails 在通用错误信息之外附带诊断细节。
func ErrorWithDetails(c *gin.Context, status int, msg string, err error) {
	body := gin.H{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(status, body)
}

func Conflict(c *gin.Context, msg string) { Error(c, http.StatusConflict, msg) }
func Gone(c *gin.Context, msg string)     { Error(c, http.StatusGone, msg) }
func Internal(c *gin.Context, msg string) { Error(c, http.StatusInternalServerError, msg) }
