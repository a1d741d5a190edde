package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// FileController exposes the tutor's published files.
type FileController struct {
	files *services.FileService
}

func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

// Upload stores a new file owned by the caller.
func (f *FileController) Upload(ctx *gin.Context) {
	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	limitBody(ctx)
	up, file, ok := formUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	rec, err := f.files.Upload(ctx.Request.Context(), p, up, ctx.PostForm("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, rec)
}

// ListMine returns the caller's files, newest first.
func (f *FileController) ListMine(ctx *gin.Context) {
	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	items, err := f.files.ListByOwner(ctx.Request.Context(), p)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// ListPublic returns every published file, newest first.
func (f *FileController) ListPublic(ctx *gin.Context) {
	items, err := f.files.ListPublic(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// Download redirects to a URL the browser can fetch the blob from.
func (f *FileController) Download(ctx *gin.Context) {
	target, err := f.files.DownloadTarget(ctx.Request.Context(), strings.TrimSpace(ctx.Param("id")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, target)
}

// Delete removes a file and its blob. Only the owner may do so.
func (f *FileController) Delete(ctx *gin.Context) {
	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	if err := f.files.Delete(ctx.Request.Context(), p, strings.TrimSpace(ctx.Param("id"))); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "file deleted"})
}

// Rename changes the display name and optionally the category.
func (f *FileController) Rename(ctx *gin.Context) {
	type request struct {
		NewName  string  `json:"new_name" binding:"required"`
		Category *string `json:"category"`
	}

	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	rec, err := f.files.Rename(ctx.Request.Context(), p, strings.TrimSpace(ctx.Param("id")), req.NewName, req.Category)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rec)
}
