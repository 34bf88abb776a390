package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goblog/models"
	"goblog/testutils"
)

func TestListPostsFiltersCompose(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := testutils.CreateUser(t, db, "alice", "password123")
	bob := testutils.CreateUser(t, db, "bob", "password123")
	golang := testutils.CreateCategory(t, db, "golang")
	cooking := testutils.CreateCategory(t, db, "cooking")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	testutils.CreatePost(t, db, alice, golang, "Concurrency Patterns", base)
	testutils.CreatePost(t, db, bob, golang, "Concurrency Pitfalls", base.Add(time.Hour))
	testutils.CreatePost(t, db, alice, cooking, "Sourdough Basics", base.Add(2*time.Hour))

	posts, _, err := models.ListPosts(db, models.PostFilter{
		CategoryID: golang.ID,
		Search:     "CONCURRENCY",
		OwnerID:    alice.ID,
	}, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Concurrency Patterns", posts[0].Title)
	assert.Equal(t, "alice", posts[0].User.Username)
	assert.Equal(t, "golang", posts[0].Category.Name)
}

func TestListPostsClampsPage(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		testutils.CreatePost(t, db, user, category, fmt.Sprintf("post %d", i), base.Add(time.Duration(i)*time.Minute))
	}

	// Past the last page: clamp down.
	posts, pagination, err := models.ListPosts(db, models.PostFilter{Page: 99, PageSize: 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, pagination.Page)
	assert.Equal(t, 3, pagination.TotalPages)
	assert.Equal(t, int64(7), pagination.Total)
	assert.Len(t, posts, 1)

	// Below the first page: clamp up.
	_, pagination, err = models.ListPosts(db, models.PostFilter{Page: -5, PageSize: 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)

	// An empty table still reports one page.
	require.NoError(t, db.Where("1 = 1").Delete(&models.Post{}).Error)
	_, pagination, err = models.ListPosts(db, models.PostFilter{Page: 1, PageSize: 3}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.TotalPages)
	assert.Equal(t, int64(0), pagination.Total)
}

func TestTogglePostLike(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := testutils.CreateUser(t, db, "alice", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, user, category, "likeable", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))

	liked, err := models.TogglePostLike(db, post.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = models.TogglePostLike(db, post.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	var count int64
	require.NoError(t, db.Model(&models.PostLike{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestLikeMetaIsActorSpecific(t *testing.T) {
	db := testutils.SetupTestDB(t)
	alice := testutils.CreateUser(t, db, "alice", "password123")
	bob := testutils.CreateUser(t, db, "bob", "password123")
	category := testutils.CreateCategory(t, db, "general")
	post := testutils.CreatePost(t, db, alice, category, "popular", time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, db.Create(&models.PostLike{PostID: post.ID, UserID: bob.ID}).Error)

	detail, err := models.GetPostDetail(db, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.LikeCount)
	assert.True(t, detail.LikedByMe)

	detail, err = models.GetPostDetail(db, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), detail.LikeCount)
	assert.False(t, detail.LikedByMe)

	detail, err = models.GetPostDetail(db, post.ID, 0)
	require.NoError(t, err)
	assert.False(t, detail.LikedByMe)
}

func TestCategoryDeleteCascades(t *testing.T) {
	db := testutils.SetupTestDB(t)
	user := testutils.CreateUser(t, db, "alice", "password123")
	doomed := testutils.CreateCategory(t, db, "doomed")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p1 := testutils.CreatePost(t, db, user, doomed, "one", base)
	p2 := testutils.CreatePost(t, db, user, doomed, "two", base.Add(time.Hour))
	require.NoError(t, db.Create(&models.Comment{PostID: p1.ID, UserID: user.ID, Content: "c1"}).Error)
	require.NoError(t, db.Create(&models.PostLike{PostID: p2.ID, UserID: user.ID}).Error)

	require.NoError(t, db.Delete(doomed).Error)

	var posts, comments, likes int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	require.NoError(t, db.Model(&models.PostLike{}).Count(&likes).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
	assert.Zero(t, likes)
}
