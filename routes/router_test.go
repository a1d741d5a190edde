package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/studyshare/config"
	"github.com/cppla/studyshare/services"
	"github.com/cppla/studyshare/storage/storagetest"
	"github.com/cppla/studyshare/store"
	"github.com/cppla/studyshare/utils"
)

const adminKey = "correct horse battery staple"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testApp struct {
	router *gin.Engine
	store  *store.MemoryStore
	blobs  *storagetest.Store
}

func newTestApp(t *testing.T, maxFailures int) *testApp {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.MinCost)
	require.NoError(t, err)

	tokens, err := utils.NewTokenManager("test-secret", time.Hour)
	require.NoError(t, err)
	guard := utils.NewLoginGuard(nil, maxFailures, time.Minute, time.Minute)
	auth, err := services.NewAuthService(string(hash), "admin", "Tutor", tokens, utils.NewTokenBlacklist(nil), guard)
	require.NoError(t, err)

	st := store.NewMemoryStore()
	blobs := storagetest.New()
	cache := utils.NewCache(nil)
	cfg := config.AppConfig{GinMode: "test", RateLimitPerMinute: 600, AllowedOrigins: []string{"*"}}

	r := SetupRouter(cfg, Services{
		Auth:        auth,
		Files:       services.NewFileService(st, st, blobs, cache, time.Hour),
		Submissions: services.NewSubmissionService(st, blobs, cache, services.NewNotifier(nil, ""), time.Hour),
	})
	return &testApp{router: r, store: st, blobs: blobs}
}

func (a *testApp) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T) string {
	t.Helper()
	w := a.do(http.MethodPost, "/api/auth/admin-login", "", strings.NewReader(`{"admin_key":"`+adminKey+`"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session services.Session
	decodeData(t, w, &session)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(decode(t, w).Data, out))
}

// multipartBody builds a form with one file part and the given text fields.
func multipartBody(t *testing.T, filename, contentType string, data []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func pdf(size int) []byte {
	buf := bytes.Repeat([]byte("0"), size)
	copy(buf, "%PDF-1.4\n")
	return buf
}

func TestHealthAndNoRoute(t *testing.T) {
	app := newTestApp(t, 10)

	w := app.do(http.MethodGet, "/health", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/api/nope", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 40400, decode(t, w).Code)
}

func TestUploadPolicyEndpoint(t *testing.T) {
	app := newTestApp(t, 10)
	w := app.do(http.MethodGet, "/api/config/upload-policy", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var policy services.UploadPolicy
	decodeData(t, w, &policy)
	assert.EqualValues(t, services.MaxUploadBytes, policy.MaxBytes)
	assert.Contains(t, policy.AllowedExtensions, ".pdf")
}

func TestAdminLoginWrongKey(t *testing.T) {
	app := newTestApp(t, 10)

	for _, body := range []string{`{"admin_key":"guess"}`, `{"admin_key":""}`, `{}`} {
		w := app.do(http.MethodPost, "/api/auth/admin-login", "", strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusUnauthorized, w.Code, body)
		assert.Equal(t, "Invalid credentials", decode(t, w).Message, body)
	}

	w := app.do(http.MethodPost, "/api/auth/admin-login", "", strings.NewReader(`not json`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminLoginLockout(t *testing.T) {
	app := newTestApp(t, 2)
	for i := 0; i < 2; i++ {
		w := app.do(http.MethodPost, "/api/auth/admin-login", "", strings.NewReader(`{"admin_key":"guess"}`), "application/json")
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w := app.do(http.MethodPost, "/api/auth/admin-login", "", strings.NewReader(`{"admin_key":"`+adminKey+`"}`), "application/json")
	assert.Equal(t, http.StatusTooManyRequests, w.Code, "banned even with the right key")
}

func TestSessionLifecycle(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	w := app.do(http.MethodGet, "/api/auth/me", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var p services.Principal
	decodeData(t, w, &p)
	assert.Equal(t, "admin", p.ID)

	w = app.do(http.MethodPost, "/api/auth/logout", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(http.MethodGet, "/api/auth/me", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/api/files/my-files", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestFileEndpoints(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	body, ct := multipartBody(t, "Algebra.pdf", "application/pdf", pdf(2048), map[string]string{"category": "math"})
	w := app.do(http.MethodPost, "/api/files/upload", token, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var rec struct {
		ID           string `json:"id"`
		OriginalName string `json:"original_name"`
		Category     string `json:"category"`
		Size         int64  `json:"size"`
	}
	decodeData(t, w, &rec)
	assert.Equal(t, "Algebra.pdf", rec.OriginalName)
	assert.Equal(t, "math", rec.Category)
	assert.EqualValues(t, 2048, rec.Size)

	w = app.do(http.MethodGet, "/api/files/public", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), rec.ID)

	w = app.do(http.MethodGet, "/api/files/download/"+rec.ID, "", nil, "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://signed.test/uploads/"))

	w = app.do(http.MethodGet, "/api/files/download/missing", "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPut, "/api/files/"+rec.ID+"/rename", token, strings.NewReader(`{"new_name":"Algebra II.pdf","category":"exam"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Algebra II.pdf")

	w = app.do(http.MethodPut, "/api/files/"+rec.ID+"/rename", token, strings.NewReader(`{"new_name":"../x.pdf"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodDelete, "/api/files/"+rec.ID, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, app.blobs.Len())

	w = app.do(http.MethodDelete, "/api/files/"+rec.ID, token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	body, ct := multipartBody(t, "big.pdf", "application/pdf", pdf(11*1024*1024), nil)
	w := app.do(http.MethodPost, "/api/files/upload", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	body, ct = multipartBody(t, "edge.pdf", "application/pdf", pdf(services.MaxUploadBytes+1), nil)
	w = app.do(http.MethodPost, "/api/files/upload", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

	assert.Zero(t, app.blobs.Len())
	w = app.do(http.MethodGet, "/api/files/my-files", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []json.RawMessage
	decodeData(t, w, &items)
	assert.Empty(t, items)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	body, ct := multipartBody(t, "run.exe", "application/octet-stream", []byte("MZ\x90\x00"), nil)
	w := app.do(http.MethodPost, "/api/files/upload", token, body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/files/upload", token, strings.NewReader(""), "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUploadRejectsPathLikeFilenames(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	for _, name := range []string{"../../evil.pdf", "sub/dir/notes.pdf", `..\\notes.pdf`} {
		body, ct := multipartBody(t, name, "application/pdf", pdf(2048), nil)
		w := app.do(http.MethodPost, "/api/files/upload", token, body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)

		body, ct = multipartBody(t, name, "application/pdf", pdf(2048), map[string]string{
			"student_name":  "Ana",
			"student_email": "ana@x.com",
		})
		w = app.do(http.MethodPost, "/api/submissions/submit", "", body, ct)
		assert.Equal(t, http.StatusBadRequest, w.Code, name)
	}
	assert.Zero(t, app.blobs.Len())
}

func TestSubmissionReviewFlow(t *testing.T) {
	app := newTestApp(t, 10)
	token := app.login(t)

	submit := func(name string) string {
		body, ct := multipartBody(t, name, "application/pdf", pdf(2048), map[string]string{
			"student_name":  "Ana",
			"student_email": "ana@x.com",
			"category":      "notes",
		})
		w := app.do(http.MethodPost, "/api/submissions/submit", "", body, ct)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var out struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		decodeData(t, w, &out)
		assert.Equal(t, "pending", out.Status)
		return out.ID
	}
	first := submit("Ana notes.pdf")
	second := submit("Scan.pdf")

	w := app.do(http.MethodGet, "/api/submissions/pending", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodGet, "/api/submissions/pending", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var pending []struct {
		ID string `json:"id"`
	}
	decodeData(t, w, &pending)
	require.Len(t, pending, 2)
	assert.Equal(t, second, pending[0].ID)

	w = app.do(http.MethodGet, "/api/submissions/download/"+first, token, nil, "")
	assert.Equal(t, http.StatusFound, w.Code)

	w = app.do(http.MethodPost, "/api/submissions/approve/"+first, token, nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = app.do(http.MethodPost, "/api/submissions/approve/"+first, token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodGet, "/api/files/public", "", nil, "")
	assert.Contains(t, w.Body.String(), "Ana notes.pdf")

	w = app.do(http.MethodPost, "/api/submissions/reject/"+second, token, strings.NewReader(`{"reason":"blurry scan"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "blurry scan")
	w = app.do(http.MethodPost, "/api/submissions/reject/"+second, token, nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/api/submissions/approve/unknown", token, nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPut, "/api/submissions/"+second+"/rename", token, strings.NewReader(`{"new_name":"Scan v2.pdf"}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Scan v2.pdf")

	w = app.do(http.MethodGet, "/api/submissions/all", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var all []struct {
		Status string `json:"status"`
	}
	decodeData(t, w, &all)
	assert.Len(t, all, 2)
}

func TestSubmitRequiresStudentFields(t *testing.T) {
	app := newTestApp(t, 10)

	body, ct := multipartBody(t, "a.pdf", "application/pdf", pdf(100), map[string]string{"student_name": "Ana", "student_email": "not-an-email"})
	w := app.do(http.MethodPost, "/api/submissions/submit", "", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, app.blobs.Len())
}
