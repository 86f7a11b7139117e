package api

import "github.com/gin-gonic/gin"

// Response is the envelope every handler returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse writes a 200 envelope.
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(200, Response{Success: true, Message: message, Data: data})
}

// CreatedResponse writes a 201 envelope.
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(201, Response{Success: true, Message: message, Data: data})
}

// ErrorResponse writes a failure envelope at the given status code.
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, Response{Success: false, Message: message})
}

// BadRequestError writes a 400 envelope.
func BadRequestError(c *gin.Context, message string) {
	ErrorResponse(c, 400, message)
}

// NotFoundError writes a 404 envelope.
func NotFoundError(c *gin.Context, message string) {
	ErrorResponse(c, 404, message)
}

// InternalError writes a 500 envelope.
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, 500, message)
}
