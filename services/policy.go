package services

import (
	"io"
	"mime"
	"net/mail"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"github.com/cppla/studyshare/utils"
)

// Upload and metadata limits shared by tutor uploads and student submissions.
const (
	MaxUploadBytes        = 10 * 1024 * 1024
	MaxNameLength         = 255
	MaxStudentNameLength  = 100
	MaxEmailLength        = 254
	MaxDescriptionLength  = 500
	MaxReasonLength       = 500
	MaxSubmissionCategory = 50
	MaxFileCategory       = 100

	DefaultSubmissionCategory = "other"
	DefaultRejectionReason    = "No reason provided"

	genericContentType = "application/octet-stream"
	oleContainerType   = "application/x-ole-storage"
)

// allowedTypes maps each accepted extension to the one MIME type it may carry.
var allowedTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".ppt":  "application/vnd.ms-powerpoint",
	".pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".txt":  "text/plain",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
}

// legacy Office formats are OLE containers; the sniffer cannot always tell them apart.
var oleTypes = map[string]bool{
	"application/msword":            true,
	"application/vnd.ms-excel":      true,
	"application/vnd.ms-powerpoint": true,
}

// Upload is one file part as received from the client.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// validatedUpload holds the bytes actually read and the checked metadata.
type validatedUpload struct {
	Name     string
	Ext      string
	MimeType string
	Data     []byte
}

func (v *validatedUpload) Size() int64 { return int64(len(v.Data)) }

// UploadPolicy describes the rules for clients rendering an upload form.
type UploadPolicy struct {
	MaxBytes          int64             `json:"max_bytes"`
	AllowedExtensions []string          `json:"allowed_extensions"`
	AllowedMimeTypes  []string          `json:"allowed_mime_types"`
	ExtensionMime     map[string]string `json:"extension_mime"`
}

// Policy returns the shared upload rules.
func Policy() UploadPolicy {
	exts := make([]string, 0, len(allowedTypes))
	mimes := make([]string, 0, len(allowedTypes))
	byExt := make(map[string]string, len(allowedTypes))
	for ext, m := range allowedTypes {
		exts = append(exts, ext)
		mimes = append(mimes, m)
		byExt[ext] = m
	}
	return UploadPolicy{
		MaxBytes:          MaxUploadBytes,
		AllowedExtensions: utils.UniqueSorted(exts),
		AllowedMimeTypes:  utils.UniqueSorted(mimes),
		ExtensionMime:     byExt,
	}
}

// ValidateFilename checks a name for storage as a display name.
func ValidateFilename(raw string) (string, error) {
	if strings.ContainsRune(raw, 0) {
		return "", invalid("file name contains a NUL byte")
	}
	name := utils.Sanitize(raw)
	if name == "" {
		return "", invalid("file name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", invalid("file name exceeds %d characters", MaxNameLength)
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", invalid("file name must not contain path separators or '..'")
	}
	return name, nil
}

// validateUpload applies the shared policy and reads at most MaxUploadBytes+1 bytes.
// Nothing is written anywhere; callers store the result only when it returns nil.
func validateUpload(u Upload) (*validatedUpload, error) {
	if u.Body == nil {
		return nil, invalid("file is required")
	}
	name, err := ValidateFilename(u.Filename)
	if err != nil {
		return nil, err
	}
	ext := strings.ToLower(filepath.Ext(name))
	expected, ok := allowedTypes[ext]
	if !ok {
		return nil, invalid("file extension %q is not allowed", ext)
	}

	declared := normalizeContentType(u.ContentType)
	if declared != "" && declared != genericContentType && declared != expected {
		return nil, invalid("content type %q does not match extension %q", declared, ext)
	}

	data, err := io.ReadAll(io.LimitReader(u.Body, MaxUploadBytes+1))
	if err != nil {
		return nil, invalid("could not read file: %v", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, invalid("file exceeds the %d byte limit", MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, invalid("file is empty")
	}

	if declared == "" || declared == genericContentType {
		if !sniffMatches(data, expected) {
			return nil, invalid("file content does not match extension %q", ext)
		}
	}
	return &validatedUpload{Name: name, Ext: ext, MimeType: expected, Data: data}, nil
}

func normalizeContentType(ct string) string {
	ct = strings.TrimSpace(ct)
	if ct == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(ct)
	}
	// image/jpg is a common client mislabel
	if mt == "image/jpg" || mt == "image/pjpeg" {
		return "image/jpeg"
	}
	return mt
}

func sniffMatches(data []byte, expected string) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(expected) {
			return true
		}
		if oleTypes[expected] && m.Is(oleContainerType) {
			return true
		}
	}
	return false
}

// cleanText sanitizes optional free text and enforces its length cap.
func cleanText(field, raw string, max int) (string, error) {
	v := utils.Sanitize(raw)
	if utf8.RuneCountInString(v) > max {
		return "", invalid("%s exceeds %d characters", field, max)
	}
	return v, nil
}

func validateStudent(name, email string) (string, string, error) {
	n, err := cleanText("student name", name, MaxStudentNameLength)
	if err != nil {
		return "", "", err
	}
	if n == "" {
		return "", "", invalid("student name is required")
	}
	e := strings.TrimSpace(email)
	if e == "" {
		return "", "", invalid("student email is required")
	}
	if len(e) > MaxEmailLength {
		return "", "", invalid("student email exceeds %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(e)
	if err != nil || addr.Address != e || !strings.Contains(e[strings.LastIndex(e, "@")+1:], ".") {
		return "", "", invalid("student email is not a valid address")
	}
	return n, e, nil
}
