package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	codeOK = iota
	codeBadRequest
	codeStoreError
)

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Code: codeOK, Message: "success", Data: data})
}

func fail(c *gin.Context, httpCode, code int, message string) {
	c.JSON(httpCode, Response{Code: code, Message: message})
}
