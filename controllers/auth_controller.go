package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/middleware"
	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// AuthController handles the admin key login and session endpoints.
type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

// AdminLogin exchanges the admin key for a session token.
func (a *AuthController) AdminLogin(ctx *gin.Context) {
	type request struct {
		AdminKey string `json:"admin_key"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	session, err := a.auth.VerifyAdminKey(ctx.Request.Context(), ctx.ClientIP(), req.AdminKey)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, session)
}

// Logout revokes the bearer token used for this request.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if err := a.auth.Logout(ctx.Request.Context(), token); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated principal.
func (a *AuthController) Me(ctx *gin.Context) {
	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	utils.Success(ctx, p)
}
