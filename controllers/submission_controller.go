package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// SubmissionController serves the student submission form and the tutor's review queue.
type SubmissionController struct {
	subs *services.SubmissionService
}

func NewSubmissionController(subs *services.SubmissionService) *SubmissionController {
	return &SubmissionController{subs: subs}
}

// Submit accepts a student file together with the form fields describing it.
func (s *SubmissionController) Submit(ctx *gin.Context) {
	type request struct {
		StudentName  string `form:"student_name" binding:"required"`
		StudentEmail string `form:"student_email" binding:"required,email"`
		Description  string `form:"description"`
		Category     string `form:"category"`
	}

	limitBody(ctx)
	up, file, ok := formUpload(ctx)
	if !ok {
		return
	}
	defer file.Close()

	var req request
	if err := ctx.ShouldBind(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "student_name and a valid student_email are required")
		return
	}

	sub, err := s.subs.Submit(ctx.Request.Context(), services.SubmissionMeta{
		StudentName:  req.StudentName,
		StudentEmail: req.StudentEmail,
		Description:  req.Description,
		Category:     req.Category,
	}, up)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"id": sub.ID, "status": sub.Status})
}

// ListPending returns submissions awaiting review.
func (s *SubmissionController) ListPending(ctx *gin.Context) {
	items, err := s.subs.ListPending(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// ListAll returns every submission regardless of status.
func (s *SubmissionController) ListAll(ctx *gin.Context) {
	items, err := s.subs.ListAll(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, items)
}

// Download redirects the tutor to the submitted blob.
func (s *SubmissionController) Download(ctx *gin.Context) {
	target, err := s.subs.DownloadTarget(ctx.Request.Context(), strings.TrimSpace(ctx.Param("id")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, target)
}

// Approve publishes a pending submission.
func (s *SubmissionController) Approve(ctx *gin.Context) {
	p, ok := principalOf(ctx)
	if !ok {
		return
	}
	rec, err := s.subs.Approve(ctx.Request.Context(), p, strings.TrimSpace(ctx.Param("id")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, rec)
}

// Reject closes a pending submission. The body is optional.
func (s *SubmissionController) Reject(ctx *gin.Context) {
	type request struct {
		Reason string `json:"reason"`
	}

	var req request
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
			return
		}
	}
	sub, err := s.subs.Reject(ctx.Request.Context(), strings.TrimSpace(ctx.Param("id")), req.Reason)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}

// Rename changes a submission's display name.
func (s *SubmissionController) Rename(ctx *gin.Context) {
	type request struct {
		NewName string `json:"new_name" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	sub, err := s.subs.Rename(ctx.Request.Context(), strings.TrimSpace(ctx.Param("id")), req.NewName)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, sub)
}
