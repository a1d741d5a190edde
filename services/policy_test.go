package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUploadAcceptsAllowedTypes(t *testing.T) {
	v, err := validateUpload(pdfUpload("Week 1.pdf", 2048))
	require.NoError(t, err)
	assert.Equal(t, "Week 1.pdf", v.Name)
	assert.Equal(t, ".pdf", v.Ext)
	assert.Equal(t, "application/pdf", v.MimeType)
	assert.EqualValues(t, 2048, v.Size())

	v, err = validateUpload(Upload{Filename: "notes.TXT", ContentType: "text/plain; charset=utf-8", Body: strings.NewReader("hello")})
	require.NoError(t, err)
	assert.Equal(t, "text/plain", v.MimeType)
	assert.EqualValues(t, 5, v.Size())

	v, err = validateUpload(Upload{Filename: "photo.jpg", ContentType: "image/jpg", Body: strings.NewReader("\xff\xd8\xff\xe0jpeg")})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", v.MimeType)
}

func TestValidateUploadSniffsGenericContentType(t *testing.T) {
	v, err := validateUpload(Upload{Filename: "scan.pdf", ContentType: "application/octet-stream", Body: bytes.NewReader(pdfBytes(100))})
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", v.MimeType)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	_, err = validateUpload(Upload{Filename: "diagram.png", Body: bytes.NewReader(png)})
	require.NoError(t, err)

	_, err = validateUpload(Upload{Filename: "diagram.png", Body: bytes.NewReader(pdfBytes(100))})
	assert.ErrorIs(t, err, ErrInvalidInput, "content must match the extension")
}

func TestValidateUploadRejects(t *testing.T) {
	cases := map[string]Upload{
		"disallowed extension": {Filename: "run.exe", ContentType: "application/octet-stream", Body: strings.NewReader("MZ")},
		"no extension":         {Filename: "README", ContentType: "text/plain", Body: strings.NewReader("x")},
		"type mismatch":        {Filename: "notes.pdf", ContentType: "image/png", Body: bytes.NewReader(pdfBytes(10))},
		"parent traversal":     pdfUpload("../etc/passwd.pdf", 10),
		"double dot":           pdfUpload("a..b.pdf", 10),
		"forward slash":        pdfUpload("dir/file.pdf", 10),
		"backslash":            pdfUpload(`dir\file.pdf`, 10),
		"nul byte":             pdfUpload("file\x00.pdf", 10),
		"empty name":           pdfUpload("   ", 10),
		"long name":            pdfUpload(strings.Repeat("a", 252)+".pdf", 10),
		"empty file":           {Filename: "empty.txt", ContentType: "text/plain", Body: strings.NewReader("")},
		"missing body":         {Filename: "x.pdf", ContentType: "application/pdf"},
	}
	for name, up := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := validateUpload(up)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestValidateUploadSizeCeiling(t *testing.T) {
	_, err := validateUpload(pdfUpload("exact.pdf", MaxUploadBytes))
	require.NoError(t, err)

	_, err = validateUpload(pdfUpload("big.pdf", 11*1024*1024))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = validateUpload(pdfUpload("one-over.pdf", MaxUploadBytes+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateStudent(t *testing.T) {
	name, email, err := validateStudent("  Ana  ", " ana@x.com ")
	require.NoError(t, err)
	assert.Equal(t, "Ana", name)
	assert.Equal(t, "ana@x.com", email)

	bad := [][2]string{
		{"", "ana@x.com"},
		{"<b></b>", "ana@x.com"},
		{strings.Repeat("a", 101), "ana@x.com"},
		{"Ana", ""},
		{"Ana", "not-an-email"},
		{"Ana", "Ana <ana@x.com>"},
		{"Ana", "ana@localhost"},
		{"Ana", strings.Repeat("a", 250) + "@x.com"},
	}
	for _, c := range bad {
		_, _, err := validateStudent(c[0], c[1])
		assert.ErrorIs(t, err, ErrInvalidInput, "name=%q email=%q", c[0], c[1])
	}
}

func TestPolicyListsEveryType(t *testing.T) {
	p := Policy()
	assert.EqualValues(t, MaxUploadBytes, p.MaxBytes)
	assert.Len(t, p.AllowedExtensions, 12)
	assert.Len(t, p.AllowedMimeTypes, 11)
	assert.Equal(t, "image/jpeg", p.ExtensionMime[".jpeg"])
	assert.IsIncreasing(t, p.AllowedExtensions)
}
