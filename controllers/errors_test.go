package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/cppla/studyshare/services"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: file is empty", services.ErrInvalidInput), http.StatusBadRequest},
		{services.ErrAlreadyProcessed, http.StatusBadRequest},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrUnauthenticated, http.StatusUnauthorized},
		{services.ErrForbidden, http.StatusForbidden},
		{services.ErrNotFound, http.StatusNotFound},
		{services.ErrTooManyAttempts, http.StatusTooManyRequests},
		{fmt.Errorf("%w: put blob: timeout", services.ErrUpstream), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		ctx, _ := gin.CreateTestContext(w)
		respondError(ctx, tc.err)
		assert.Equal(t, tc.status, w.Code, tc.err.Error())
	}
}

func TestRespondErrorHidesDetailInRelease(t *testing.T) {
	defer gin.SetMode(gin.TestMode)

	gin.SetMode(gin.ReleaseMode)
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	respondError(ctx, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "internal server error")

	gin.SetMode(gin.TestMode)
	w = httptest.NewRecorder()
	ctx, _ = gin.CreateTestContext(w)
	respondError(ctx, errors.New("dial tcp 10.0.0.5:3306: connection refused"))
	assert.Contains(t, w.Body.String(), "10.0.0.5")
}

func TestInvalidCredentialsMessageIsGeneric(t *testing.T) {
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	respondError(ctx, services.ErrInvalidCredentials)
	assert.JSONEq(t, `{"code":40106,"message":"Invalid credentials"}`, w.Body.String())
}
