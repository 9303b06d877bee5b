package handlers

import "github.com/gin-gonic/gin"

const (
	ErrCodeBadRequest   string = "ERR_BAD_REQUEST"
	ErrCodeUnknownRoot  string = "ERR_UNKNOWN_ROOT"
	ErrCodeUnknownError string = "ERR_UNKNOWN_ERROR"
	ErrCodeNotReady     string = "ERR_NOT_READY"
)

type ControlPlaneResponse struct {
	Code string `json:"code"`
}

type ControlPlaneError struct {
	ErrorCode string `json:"code"`
	Error     string `json:"error"`
}

func AbortWithError(c *gin.Context, status int, code string, err error) {
	c.Abort()
	c.Error(err)
	c.PureJSON(status, ControlPlaneError{
		ErrorCode: code,
		Error:     err.Error(),
	})
}
