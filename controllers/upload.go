package controllers

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/utils"
)

// formOverhead is the room left for multipart boundaries and the text fields next to the file.
const formOverhead = 1 << 20

// limitBody caps the request body before gin parses the multipart form.
func limitBody(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, services.MaxUploadBytes+formOverhead)
}

// formUpload opens the single `file` part. The caller must close the returned file.
func formUpload(ctx *gin.Context) (services.Upload, multipart.File, bool) {
	header, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Error(ctx, http.StatusBadRequest, 40031, fmt.Sprintf("file exceeds %d MB", services.MaxUploadBytes>>20))
			return services.Upload{}, nil, false
		}
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return services.Upload{}, nil, false
	}
	if form := ctx.Request.MultipartForm; form != nil && len(form.File["file"]) > 1 {
		utils.Error(ctx, http.StatusBadRequest, 40032, "exactly one file per request")
		return services.Upload{}, nil, false
	}

	f, err := header.Open()
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no file uploaded")
		return services.Upload{}, nil, false
	}
	return services.Upload{
		Filename:    clientFilename(header),
		ContentType: header.Header.Get("Content-Type"),
		Body:        f,
	}, f, true
}

// clientFilename returns the filename exactly as the client sent it. multipart.FileHeader.Filename
// is already reduced to its base name, which would hide path segments from validation.
func clientFilename(header *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(header.Header.Get("Content-Disposition"))
	if err == nil {
		if name, ok := params["filename"]; ok {
			return name
		}
	}
	return header.Filename
}
