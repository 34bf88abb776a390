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

func newCommentAPI(db *gorm.DB) *gin.Engine {
	r := gin.New()
	cc := controllers.NewCommentController(db)
	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired())
	api.GET("/comments", cc.ListComments)
	api.POST("/comments", cc.CreateComment)
	api.GET("/comments/:id", cc.GetComment)
	api.DELETE("/comments/:id", cc.DeleteComment)
	return r
}

func TestListCommentsNewestFirst(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newCommentAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, user, category, "discussed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: user.ID, Content: "older", CreatedAt: time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)}).Error)
	require.NoError(t, db.Create(&models.Comment{PostID: post.ID, UserID: user.ID, Content: "newer", CreatedAt: time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)}).Error)

	w := testutils.PerformRequest(r, http.MethodGet, "/api/v1/comments", nil, testutils.JSONHeaders(testutils.AccessToken(t, user)))
	require.Equal(t, http.StatusOK, w.Code)

	env := testutils.DecodeEnvelope(t, w)
	items := env.Data["items"].([]interface{})
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].(map[string]interface{})["content"])
	assert.Equal(t, "alice", items[0].(map[string]interface{})["author"].(map[string]interface{})["username"])
}

func TestCreateCommentInCollection(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newCommentAPI(db)

	owner := testutils.CreateUser(t, db, "alice", "password123")
	fan := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, owner, category, "discussed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	token := testutils.AccessToken(t, fan)

	body := fmt.Sprintf(`{"post_id":%d,"content":"well said"}`, post.ID)
	w := testutils.PerformRequest(r, http.MethodPost, "/api/v1/comments", strings.NewReader(body), testutils.JSONHeaders(token))
	require.Equal(t, http.StatusCreated, w.Code)
	env := testutils.DecodeEnvelope(t, w)
	comment := env.Data["comment"].(map[string]interface{})
	assert.Equal(t, "well said", comment["content"])
	assert.Equal(t, "bob", comment["author"].(map[string]interface{})["username"])

	// missing post and empty content both surface as field errors
	w = testutils.PerformRequest(r, http.MethodPost, "/api/v1/comments", strings.NewReader(`{"post_id":9999,"content":""}`), testutils.JSONHeaders(token))
	require.Equal(t, http.StatusBadRequest, w.Code)
	env = testutils.DecodeEnvelope(t, w)
	errs := env.Data["errors"].(map[string]interface{})
	assert.Contains(t, errs, "post_id")
	assert.Contains(t, errs, "content")
}

func TestDeleteComment(t *testing.T) {
	db := testutils.SetupTestDB(t)
	r := newCommentAPI(db)

	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, user, category, "discussed", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: "fleeting"}
	require.NoError(t, db.Create(&comment).Error)

	token := testutils.AccessToken(t, user)
	w := testutils.PerformRequest(r, http.MethodDelete, fmt.Sprintf("/api/v1/comments/%d", comment.ID), nil, testutils.JSONHeaders(token))
	require.Equal(t, http.StatusOK, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&count).Error)
	assert.Zero(t, count)

	w = testutils.PerformRequest(r, http.MethodDelete, "/api/v1/comments/9999", nil, testutils.JSONHeaders(token))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
