package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/middleware"
	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// respondError maps service errors onto HTTP statuses and application codes.
// Internal failure detail is only exposed outside release mode.
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, services.ErrAlreadyProcessed):
		utils.Error(ctx, http.StatusBadRequest, 40002, "submission already processed")
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(ctx, http.StatusUnauthorized, 40106, "Invalid credentials")
	case errors.Is(err, services.ErrUnauthenticated):
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid or expired token")
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40301, "you do not own this file")
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "resource not found")
	case errors.Is(err, services.ErrTooManyAttempts):
		utils.Error(ctx, http.StatusTooManyRequests, 42902, "too many failed attempts, try again later")
	default:
		utils.Sugar.Errorw("request failed", "path", ctx.FullPath(), "error", err)
		msg := "internal server error"
		if gin.Mode() != gin.ReleaseMode {
			msg = err.Error()
		}
		utils.Error(ctx, http.StatusInternalServerError, 50000, msg)
	}
}

func principalOf(ctx *gin.Context) (services.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
	}
	return p, ok
}
