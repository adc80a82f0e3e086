package post

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracking-moments/core/internal/config"
	"github.com/tracking-moments/core/internal/middleware"
	"github.com/tracking-moments/core/internal/modules/auth"
	"github.com/tracking-moments/core/internal/modules/favorite"
	"github.com/tracking-moments/core/internal/modules/storage/upload"
	"github.com/tracking-moments/core/internal/pkg/jwt"
	"gorm.io/gorm"
)

type postJSON struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	ImageWidth  int    `json:"image_width"`
	ImageHeight int    `json:"image_height"`
	PostDate    string `json:"post_date"`
	IsArchived  bool   `json:"is_archived"`
}

func newTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt.SetSecret("handler-test-secret")

	db := newTestDB(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Paths.Static = t.TempDir()

	r := gin.New()
	api := r.Group("/api", middleware.OptionalAuth(db))
	authMW := middleware.Auth(db)

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	NewHandler(NewService(db), upload.NewStore(cfg)).RegisterRoutes(api, authMW)
	favorite.NewHandler(favorite.NewService(db)).RegisterRoutes(api, authMW)
	return r, db
}

// newGuardedRouter builds the router with the full production middleware
// stack (rate limiter + replay guard on a test redis), matching the app
// wiring rather than the bare router used by the other tests.
func newGuardedRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwt.SetSecret("handler-test-secret")

	db := newTestDB(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Paths.Static = t.TempDir()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.RateLimit(rdb))
	api.Use(middleware.Idempotence(rdb))
	authMW := middleware.Auth(db)

	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW)
	NewHandler(NewService(db), upload.NewStore(cfg)).RegisterRoutes(api, authMW)
	favorite.NewHandler(favorite.NewService(db)).RegisterRoutes(api, authMW)
	return r
}

func do(t *testing.T, r *gin.Engine, method, url, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, url, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func doJSON(t *testing.T, r *gin.Engine, method, url, token string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return do(t, r, method, url, token, body, "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}

// signUp registers and logs in a fresh account, returning the bearer
// token and user id.
func signUp(t *testing.T, r *gin.Engine, name, email string) (token, userID string) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": name, "email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": email, "password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, w, &resp)
	require.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.User.ID)
	return resp.Token, resp.User.ID
}

func multipartPost(t *testing.T, fields map[string]string, withImage bool) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if withImage {
		part, err := mw.CreateFormFile("image", "moment.png")
		require.NoError(t, err)
		require.NoError(t, png.Encode(part, image.NewRGBA(image.Rect(0, 0, 4, 3))))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func createPost(t *testing.T, r *gin.Engine, token string, fields map[string]string, withImage bool) postJSON {
	t.Helper()
	body, ct := multipartPost(t, fields, withImage)
	w := do(t, r, http.MethodPost, "/api/posts", token, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p postJSON
	decode(t, w, &p)
	return p
}

func TestPostLifecycleOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	token, userID := signUp(t, r, "Alice", "alice@example.com")

	p := createPost(t, r, token, map[string]string{
		"title":       "First snow",
		"description": "It finally snowed.",
		"post_date":   "2024-12-01",
	}, true)
	assert.Equal(t, userID, p.UserID)
	assert.True(t, strings.HasPrefix(p.ImageURL, upload.URLPrefix+"/"), p.ImageURL)
	assert.Equal(t, 4, p.ImageWidth)
	assert.Equal(t, 3, p.ImageHeight)
	assert.True(t, strings.HasPrefix(p.PostDate, "2024-12-01"), p.PostDate)

	// Anonymous read of a single post.
	w := do(t, r, http.MethodGet, "/api/posts/"+p.ID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got postJSON
	decode(t, w, &got)
	assert.Equal(t, "First snow", got.Title)

	// Active list shows it, archived list is empty.
	var list struct {
		Data []postJSON `json:"data"`
	}
	w = do(t, r, http.MethodGet, "/api/posts/user/"+userID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 1)

	w = do(t, r, http.MethodGet, "/api/posts/user/"+userID+"/archived", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Data)

	// Archive, then the lists swap.
	w = doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID, token, gin.H{"is_archived": true})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/posts/user/"+userID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Data)

	w = do(t, r, http.MethodGet, "/api/posts/user/"+userID+"/archived", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 1)

	// Restore brings it back to the active list.
	w = doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID+"/restore", token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/posts/user/"+userID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.False(t, list.Data[0].IsArchived)

	// Hard delete, then the post is gone for good.
	w = do(t, r, http.MethodDelete, "/api/posts/"+p.ID, token, nil, "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, r, http.MethodGet, "/api/posts/"+p.ID, "", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateOverHTTPKeepsImage(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := signUp(t, r, "Alice", "alice@example.com")

	p := createPost(t, r, token, map[string]string{
		"title": "Before", "description": "d",
	}, true)
	require.NotEmpty(t, p.ImageURL)

	body, ct := multipartPost(t, map[string]string{"title": "After"}, false)
	w := do(t, r, http.MethodPut, "/api/posts/"+p.ID, token, body, ct)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got postJSON
	decode(t, w, &got)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "d", got.Description)
	assert.Equal(t, p.ImageURL, got.ImageURL)
}

func TestMutationsRequireAuth(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := signUp(t, r, "Alice", "alice@example.com")
	p := createPost(t, r, token, map[string]string{
		"title": "Mine", "description": "d",
	}, false)

	body, ct := multipartPost(t, map[string]string{"title": "x", "description": "y"}, false)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/api/posts", "", body, ct).Code)
	assert.Equal(t, http.StatusUnauthorized, doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID, "", gin.H{"is_archived": true}).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodDelete, "/api/posts/"+p.ID, "", nil, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/favorites", "", nil, "").Code)

	// A syntactically valid but unsigned-by-us token is rejected too.
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodDelete, "/api/posts/"+p.ID, "not-a-token", nil, "").Code)
}

func TestCrossUserAccessForbidden(t *testing.T) {
	r, _ := newTestRouter(t)
	aliceToken, aliceID := signUp(t, r, "Alice", "alice@example.com")
	bobToken, _ := signUp(t, r, "Bob", "bob@example.com")

	p := createPost(t, r, aliceToken, map[string]string{
		"title": "Private", "description": "d",
	}, false)

	body, ct := multipartPost(t, map[string]string{"title": "Hijacked"}, false)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPut, "/api/posts/"+p.ID, bobToken, body, ct).Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID, bobToken, gin.H{"is_archived": true}).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodDelete, "/api/posts/"+p.ID, bobToken, nil, "").Code)

	w := do(t, r, http.MethodGet, "/api/posts/user/"+aliceID+"/archived", bobToken, nil, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "your own archived posts")

	// Alice still owns an untouched post.
	w = do(t, r, http.MethodGet, "/api/posts/"+p.ID, "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var got postJSON
	decode(t, w, &got)
	assert.Equal(t, "Private", got.Title)
}

func TestCreateValidation(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := signUp(t, r, "Alice", "alice@example.com")

	body, ct := multipartPost(t, map[string]string{"description": "no title"}, false)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/posts", token, body, ct).Code)

	body, ct = multipartPost(t, map[string]string{
		"title": "t", "description": "d", "post_date": "01/12/2024",
	}, false)
	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodPost, "/api/posts", token, body, ct).Code)
}

func TestUploadRejectsDisallowedExtension(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := signUp(t, r, "Alice", "alice@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("title", "t"))
	require.NoError(t, mw.WriteField("description", "d"))
	part, err := mw.CreateFormFile("image", "payload.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("MZ..."))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := do(t, r, http.MethodPost, "/api/posts", token, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestUploadedImageURL(t *testing.T) {
	r, _ := newTestRouter(t)
	token, _ := signUp(t, r, "Alice", "alice@example.com")

	p := createPost(t, r, token, map[string]string{
		"title": "Pic", "description": "d",
	}, true)
	require.True(t, strings.HasPrefix(p.ImageURL, upload.URLPrefix+"/"))
	name := strings.TrimPrefix(p.ImageURL, upload.URLPrefix+"/")
	assert.Equal(t, ".png", filepath.Ext(name))
}

func TestFavoritesOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	aliceToken, _ := signUp(t, r, "Alice", "alice@example.com")
	bobToken, _ := signUp(t, r, "Bob", "bob@example.com")

	p := createPost(t, r, aliceToken, map[string]string{
		"title": "Shared", "description": "d",
	}, false)

	// Favoriting twice is still 204 and still one entry.
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/favorites/"+p.ID, bobToken, nil, "").Code)
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/favorites/"+p.ID, bobToken, nil, "").Code)

	var list struct {
		Data []postJSON `json:"data"`
	}
	w := do(t, r, http.MethodGet, "/api/favorites", bobToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, p.ID, list.Data[0].ID)

	// Unknown target is a 404.
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodPost, "/api/favorites/no-such-post", bobToken, nil, "").Code)

	// Owner deleting the post clears everyone's favorites.
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/posts/"+p.ID, aliceToken, nil, "").Code)

	w = do(t, r, http.MethodGet, "/api/favorites", bobToken, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &list)
	assert.Empty(t, list.Data)

	// Unfavoriting something no longer listed stays a no-op.
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/favorites/"+p.ID, bobToken, nil, "").Code)
}

func TestFavoriteRetriesPassReplayGuard(t *testing.T) {
	r := newGuardedRouter(t)
	aliceToken, _ := signUp(t, r, "Alice", "alice@example.com")
	bobToken, _ := signUp(t, r, "Bob", "bob@example.com")

	p := createPost(t, r, aliceToken, map[string]string{
		"title": "Shared", "description": "d",
	}, false)

	// An identical favorite sent twice in a row stays a no-op success.
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/favorites/"+p.ID, bobToken, nil, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/favorites/"+p.ID, bobToken, nil, "").Code)

	// Same for unfavorite retries.
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/favorites/"+p.ID, bobToken, nil, "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/api/favorites/"+p.ID, bobToken, nil, "").Code)

	// Non-exempt writes are still guarded: the exact same archive request
	// replayed within the window is rejected.
	w := doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID, aliceToken, gin.H{"is_archived": true})
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	w = doJSON(t, r, http.MethodPatch, "/api/posts/"+p.ID, aliceToken, gin.H{"is_archived": true})
	assert.Equal(t, http.StatusConflict, w.Code, w.Body.String())
}

func TestSessionEndpointOverHTTP(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/api/auth/session", "", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", strings.TrimSpace(w.Body.String()))

	token, userID := signUp(t, r, "Alice", "alice@example.com")
	w = do(t, r, http.MethodGet, "/api/auth/session", token, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var u struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	decode(t, w, &u)
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, "alice@example.com", u.Email)

	// Logout revokes the session; the token stops working.
	w = doJSON(t, r, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodDelete, "/api/posts/whatever", token, nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
