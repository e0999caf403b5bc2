package server

import "github.com/gin-gonic/gin"

const (
	CodeOK          = 0
	CodeBadRequest  = 40000
	CodeBadDataset  = 40001
	CodeEmptyQuery  = 40002
	CodeNoDataset   = 40401
	CodeStale       = 40901
	CodeNeedDataset = 40902
	CodeRateLimited = 42900
	CodeInternal    = 50000
)

// APIResponse is the envelope for every JSON reply.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, data any) {
	c.JSON(200, APIResponse{Code: CodeOK, Message: "ok", Data: data})
}

func fail(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{Code: code, Message: message})
}
