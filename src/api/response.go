package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply.
type Response struct {
	Code int         `json:"code"`
	Data interface{} `json:"data"`
	Msg  string      `json:"message"`
}

type Pagination struct {
	Current int   `json:"current"`
	Size    int   `json:"size"`
	Total   int64 `json:"total"`
}

type PageResult struct {
	Records interface{} `json:"records"`
	Pagination
}

const (
	SUCCESS          = 0
	ERROR            = -1
	NOT_FOUND        = 40400
	VALIDATION_ERROR = 40001
)

var codeMessages = map[int]string{
	SUCCESS:          "ok",
	ERROR:            "internal error",
	NOT_FOUND:        "not found",
	VALIDATION_ERROR: "invalid request",
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code: SUCCESS,
		Data: data,
		Msg:  codeMessages[SUCCESS],
	})
}

func SuccessWithPage(c *gin.Context, records interface{}, current, size int, total int64) {
	c.JSON(http.StatusOK, Response{
		Code: SUCCESS,
		Data: PageResult{
			Records: records,
			Pagination: Pagination{
				Current: current,
				Size:    size,
				Total:   total,
			},
		},
		Msg: codeMessages[SUCCESS],
	})
}

func Error(c *gin.Context, code int, msg string) {
	if msg == "" {
		msg = codeMessages[code]
	}
	c.JSON(getHttpStatus(code), Response{
		Code: code,
		Data: nil,
		Msg:  msg,
	})
}

func getHttpStatus(code int) int {
	switch code {
	case NOT_FOUND:
		return http.StatusNotFound
	case VALIDATION_ERROR:
		return http.StatusBadRequest
	case SUCCESS:
		return http.StatusOK
	default:
		return http.StatusInternalServerError
	}
}
