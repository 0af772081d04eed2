package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/linklet/linklet/httperr"
)

// OK writes a 200 response with the given payload.
func OK(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusOK, data)
}

// Created writes a 201 response with the given payload.
func Created(ctx *gin.Context, data interface{}) {
	ctx.JSON(http.StatusCreated, data)
}

// Fail renders err as {"error": message}. Internal errors are logged with
// full context (request id, user id, cause); everything else is logged at
// warn level with just the message. The context keys mirror the constants
// in the middleware package.
func Fail(ctx *gin.Context, err error) {
	he := httperr.From(err)

	if Logger != nil {
		fields := []zap.Field{
			zap.Int("status", he.Status),
			zap.String("path", ctx.Request.URL.Path),
			zap.String("request_id", ctx.GetString("request_id")),
		}
		if uid, ok := ctx.Get("user_id"); ok {
			fields = append(fields, zap.Any("user_id", uid))
		}
		if he.Err != nil {
			fields = append(fields, zap.Error(he.Err))
			Logger.Error(he.Message, fields...)
		} else {
			Logger.Warn(he.Message, fields...)
		}
	}

	ctx.AbortWithStatusJSON(he.Status, gin.H{"error": he.Message})
}
