package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"goblog/controllers"
	"goblog/middleware"
	"goblog/models"
	"goblog/testutils"
)

func newPostAPI(db *gorm.DB) *gin.Engine {
	r := gin.New()
	pc := controllers.NewPostController(db)
	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired())
	api.GET("/posts", pc.ListPosts)
	api.GET("/posts/:id", pc.GetPost)
	api.POST("/posts", pc.CreatePost)
	api.PUT("/posts/:id", pc.UpdatePost)
	api.DELETE("/posts/:id", pc.DeletePost)
	api.POST("/posts/:id/like", pc.ToggleLike)
	api.POST("/posts/:id/comments", pc.CreateComment)
	api.GET("/users/me/posts", pc.ListMyPosts)
	return r
}

func itemTitles(env testutils.Envelope) []string {
	items := env.Data["items"].([]interface{})
	titles := make([]string, 0, len(items))
	for _, it := range items {
		titles = append(titles, it.(map[string]interface{})["title"].(string))
	}
	return titles
}

func TestListPostsRequiresAuth(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	w := testutils.PerformRequest(r, http.MethodGet, "/api/v1/posts", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListPostsNewestFirst(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	testutils.CreatePost(t, db, user, category, "oldest", base)
	testutils.CreatePost(t, db, user, category, "middle", base.Add(time.Hour))
	testutils.CreatePost(t, db, user, category, "newest", base.Add(2*time.Hour))

	token := testutils.AccessToken(t, user)
	w := testutils.PerformRequest(r, http.MethodGet, "/api/v1/posts", nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	assert.Equal(t, []string{"newest", "middle", "oldest"}, itemTitles(env))
}

func TestListPostsCategoryFilterAndSearch(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	golang := testutils.CreateCategory(t, db, "golang")
	cooking := testutils.CreateCategory(t, db, "cooking")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	testutils.CreatePost(t, db, user, golang, "Generics Deep Dive", base)
	testutils.CreatePost(t, db, user, golang, "Error Handling", base.Add(time.Hour))
	testutils.CreatePost(t, db, user, cooking, "Bread Recipes", base.Add(2*time.Hour))

	token := testutils.AccessToken(t, user)

	w := testutils.PerformRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/posts?category=%d", golang.ID), nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Error Handling", "Generics Deep Dive"}, itemTitles(testutils.DecodeEnvelope(t, w)))

	// Search is case-insensitive and composes with the category filter.
	w = testutils.PerformRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/posts?category=%d&search=GENERICS", golang.ID), nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Generics Deep Dive"}, itemTitles(testutils.DecodeEnvelope(t, w)))

	w = testutils.PerformRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/posts?category=%d&search=bread", golang.ID), nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, itemTitles(testutils.DecodeEnvelope(t, w)))
}

func TestListPostsPageClamping(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 15; i++ {
		testutils.CreatePost(t, db, user, category, fmt.Sprintf("post %02d", i), base.Add(time.Duration(i)*time.Minute))
	}

	token := testutils.AccessToken(t, user)
	w := testutils.PerformRequest(r, http.MethodGet, "/api/v1/posts?page=999", nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	pagination := env.Data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(2), pagination["page"])
	assert.Equal(t, float64(2), pagination["total_pages"])
	assert.Equal(t, float64(15), pagination["total"])
	assert.Len(t, env.Data["items"].([]interface{}), 5)

	// page=0 clamps up to the first page
	w = testutils.PerformRequest(r, http.MethodGet, "/api/v1/posts?page=0", nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	env = testutils.DecodeEnvelope(t, w)
	pagination = env.Data["pagination"].(map[string]interface{})
	assert.Equal(t, float64(1), pagination["page"])
	assert.Len(t, env.Data["items"].([]interface{}), 10)
}

func TestCreatePost(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	token := testutils.AccessToken(t, user)

	body := fmt.Sprintf(`{"title":"Hello","content":"First post","category_id":%d}`, category.ID)
	w := testutils.PerformRequest(r, http.MethodPost, "/api/v1/posts", strings.NewReader(body), testutils.JSONHeaders(token))
	require.Equal(t, http.StatusCreated, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	post := env.Data["post"].(map[string]interface{})
	assert.Equal(t, "Hello", post["title"])
	assert.Equal(t, "alice", post["author"].(map[string]interface{})["username"])
	assert.Equal(t, "general", post["category"].(map[string]interface{})["name"])
	assert.NotEmpty(t, post["publication_date"])
}

func TestCreatePostValidation(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	token := testutils.AccessToken(t, user)

	// missing title and content, unknown category
	w := testutils.PerformRequest(r, http.MethodPost, "/api/v1/posts", strings.NewReader(`{"title":"","content":"","category_id":999}`), testutils.JSONHeaders(token))
	require.Equal(t, http.StatusBadRequest, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	errs := env.Data["errors"].(map[string]interface{})
	assert.Contains(t, errs, "title")
	assert.Contains(t, errs, "content")
	assert.Contains(t, errs, "category")

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdatePostOwnerOnly(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	intruder := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	other := testutils.CreateCategory(t, db, "misc")
	post := testutils.CreatePost(t, db, owner, category, "original", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	body := fmt.Sprintf(`{"title":"updated","content":"new content","category_id":%d}`, other.ID)
	path := fmt.Sprintf("/api/v1/posts/%d", post.ID)

	w := testutils.PerformRequest(r, http.MethodPut, path, strings.NewReader(body), testutils.JSONHeaders(testutils.AccessToken(t, intruder)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutils.PerformRequest(r, http.MethodPut, path, strings.NewReader(body), testutils.JSONHeaders(testutils.AccessToken(t, owner)))
	require.Equal(t, http.StatusOK, w.Code)

	var updated models.Post
	require.NoError(t, db.First(&updated, post.ID).Error)
	assert.Equal(t, "updated", updated.Title)
	assert.Equal(t, other.ID, updated.CategoryID)
	assert.Equal(t, owner.ID, updated.UserID)
	assert.True(t, updated.PublicationDate.Equal(post.PublicationDate), "publication date must not change on update")
}

func TestDeletePostCascades(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	fan := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, owner, category, "doomed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: fan.ID, Content: "nice"}).Error)
	require.NoError(t, db.Create(&models.PostLike{PostID: post.ID, UserID: fan.ID}).Error)

	w := testutils.PerformRequest(r, http.MethodDelete, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, testutils.JSONHeaders(testutils.AccessToken(t, owner)))
	require.Equal(t, http.StatusOK, w.Code)

	var posts, comments, likes, categories, users int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	require.NoError(t, db.Model(&models.Category{}).Count(&categories).Error)
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
	assert.Zero(t, likes)
	assert.Equal(t, int64(1), categories, "category survives post deletion")
	assert.Equal(t, int64(2), users, "users survive post deletion")
}

func TestToggleLikeIsIdempotentPerState(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, owner, category, "likeable", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	token := testutils.AccessToken(t, owner)
	path := fmt.Sprintf("/api/v1/posts/%d/like", post.ID)

	w := testutils.PerformRequest(r, http.MethodPost, path, nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	env := testutils.DecodeEnvelope(t, w)
	assert.Equal(t, true, env.Data["liked"])
	assert.Equal(t, float64(1), env.Data["like_count"])

	w = testutils.PerformRequest(r, http.MethodPost, path, nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)
	env = testutils.DecodeEnvelope(t, w)
	assert.Equal(t, false, env.Data["liked"])
	assert.Equal(t, float64(0), env.Data["like_count"])
}

func TestGetPostDetail(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	fan := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, owner, category, "detailed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: fan.ID, Content: "first", CreatedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: owner.ID, Content: "second", CreatedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.PostLike{PostID: post.ID, UserID: fan.ID}).Error)

	w := testutils.PerformRequest(r, http.MethodGet, fmt.Sprintf("/api/v1/posts/%d", post.ID), nil, testutils.JSONHeaders(testutils.AccessToken(t, fan)))
	require.Equal(t, http.StatusOK, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	detail := env.Data["post"].(map[string]interface{})
	assert.Equal(t, "detailed", detail["title"])
	assert.Equal(t, float64(1), detail["like_count"])
	assert.Equal(t, true, detail["liked_by_me"])

	comments := detail["comments"].([]interface{})
	require.Len(t, comments, 2)
	assert.Equal(t, "second", comments[0].(map[string]interface{})["content"], "newest comment first")
	assert.Equal(t, "bob", comments[1].(map[string]interface{})["author"].(map[string]interface{})["username"])

	w = testutils.PerformRequest(r, http.MethodGet, "/api/v1/posts/9999", nil, testutils.JSONHeaders(testutils.AccessToken(t, fan)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateCommentOnPost(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	fan := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, owner, category, "discussed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	token := testutils.AccessToken(t, fan)
	path := fmt.Sprintf("/api/v1/posts/%d/comments", post.ID)

	w := testutils.PerformRequest(r, http.MethodPost, path, strings.NewReader(`{"content":"great read"}`), testutils.JSONHeaders(token))
	require.Equal(t, http.StatusCreated, w.Code)
	env := testutils.DecodeEnvelope(t, w)
	comment := env.Data["comment"].(map[string]interface{})
	assert.Equal(t, "great read", comment["content"])
	assert.Equal(t, "bob", comment["author"].(map[string]interface{})["username"], "author is always the caller")

	w = testutils.PerformRequest(r, http.MethodPost, path, strings.NewReader(`{"content":"   "}`), testutils.JSONHeaders(token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutils.PerformRequest(r, http.MethodPost, "/api/v1/posts/9999/comments", strings.NewReader(`{"content":"orphan"}`), testutils.JSONHeaders(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMyPosts(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newPostAPI(db)

	alice := testutils.CreateUser(t, db, "alice", "password123")
	bob := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	testutils.CreatePost(t, db, alice, category, "mine", base)
	testutils.CreatePost(t, db, bob, category, "theirs", base.Add(time.Hour))

	w := testutils.PerformRequest(r, http.MethodGet, "/api/v1/users/me/posts", nil, testutils.JSONHeaders(testutils.AccessToken(t, alice)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mine"}, itemTitles(testutils.DecodeEnvelope(t, w)))
}
