package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// ConfigController serves configuration the client needs before uploading.
type ConfigController struct{}

func NewConfigController() *ConfigController { return &ConfigController{} }

// GetUploadPolicy returns the allow-lists and size ceiling shared by uploads and submissions.
func (c *ConfigController) GetUploadPolicy(ctx *gin.Context) {
	utils.Success(ctx, services.Policy())
}
