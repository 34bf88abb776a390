// Package web renders the server-side HTML pages. It shares the models,
// forms and access rules with the JSON API but authenticates through cookie
// sessions and answers with redirects instead of envelopes.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/auth"
	"goblog/config"
	"goblog/forms"
	"goblog/middleware"
	"goblog/models"
	"goblog/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates for the gin engine.
func Templates() *template.Template {
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}

// Handler serves the HTML pages.
type Handler struct {
	db       *gorm.DB
	sessions *auth.Manager
}

// NewHandler creates the HTML page handler.
func NewHandler(db *gorm.DB, sessions *auth.Manager) *Handler {
	return &Handler{db: db, sessions: sessions}
}

// Root sends authenticated users to the blog list, others to login.
func (h *Handler) Root(ctx *gin.Context) {
	if _, ok := h.sessions.CurrentUser(ctx); ok {
		ctx.Redirect(http.StatusFound, "/home")
		return
	}
	ctx.Redirect(http.StatusFound, "/login")
}

// Home renders the paginated post list with category filter and search.
func (h *Handler) Home(ctx *gin.Context) {
	h.renderHome(ctx, forms.Errors{}, "")
}

// HomeComment handles the inline comment form on the list page.
func (h *Handler) HomeComment(ctx *gin.Context) {
	user := currentUser(ctx)
	postID := ctx.PostForm("post_id")

	content, errs := forms.CommentInput{Content: ctx.PostForm("content")}.ValidateComment()
	if errs.Any() {
		h.renderHome(ctx, errs, postID)
		return
	}

	var post models.Post
	if err := h.db.First(&post, parseID(postID)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.String(http.StatusNotFound, "Post not found.")
			return
		}
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
	if err := h.db.Create(&comment).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	ctx.Redirect(http.StatusFound, "/home")
}

func (h *Handler) renderHome(ctx *gin.Context, commentErrs forms.Errors, commentPostID string) {
	user := currentUser(ctx)
	cfg := config.Get()

	posts, pagination, err := models.ListPosts(h.db, models.PostFilter{
		CategoryID: parseID(ctx.Query("category")),
		Search:     ctx.Query("search"),
		Page:       parsePage(ctx.Query("page")),
		PageSize:   cfg.PageSize,
	}, user.ID)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	var categories []models.Category
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	ctx.HTML(http.StatusOK, "blog_list.html", gin.H{
		"User":             user,
		"Posts":            posts,
		"Pagination":       pagination,
		"Categories":       categories,
		"SelectedCategory": ctx.Query("category"),
		"SearchQuery":      ctx.Query("search"),
		"CommentErrors":    commentErrs,
		"CommentPostID":    commentPostID,
	})
}

// PostDetail renders a post with its comments, newest first.
func (h *Handler) PostDetail(ctx *gin.Context) {
	h.renderDetail(ctx, forms.Errors{}, "")
}

// PostDetailComment handles the comment form on the detail page.
func (h *Handler) PostDetailComment(ctx *gin.Context) {
	user := currentUser(ctx)

	content, errs := forms.CommentInput{Content: ctx.PostForm("content")}.ValidateComment()
	if errs.Any() {
		h.renderDetail(ctx, errs, ctx.PostForm("content"))
		return
	}

	var post models.Post
	if err := h.db.First(&post, parseID(ctx.Param("id"))).Error; err != nil {
		ctx.String(http.StatusNotFound, "Post not found.")
		return
	}

	comment := models.Comment{PostID: post.ID, UserID: user.ID, Content: content}
	if err := h.db.Create(&comment).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	ctx.Redirect(http.StatusFound, "/post/"+ctx.Param("id"))
}

func (h *Handler) renderDetail(ctx *gin.Context, commentErrs forms.Errors, draft string) {
	user := currentUser(ctx)
	post, err := models.GetPostDetail(h.db, parseID(ctx.Param("id")), user.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.String(http.StatusNotFound, "Post not found.")
			return
		}
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	ctx.HTML(http.StatusOK, "post_detail.html", gin.H{
		"User":          user,
		"Post":          post,
		"CommentErrors": commentErrs,
		"CommentDraft":  draft,
	})
}

// CreatePostForm renders the empty post form.
func (h *Handler) CreatePostForm(ctx *gin.Context) {
	h.renderPostForm(ctx, nil, forms.PostInput{}, forms.Errors{})
}

// CreatePost handles the post creation form, re-rendering with field errors
// on failure and redirecting to the list on success.
func (h *Handler) CreatePost(ctx *gin.Context) {
	user := currentUser(ctx)

	input := forms.PostInput{
		Title:      ctx.PostForm("title"),
		Content:    ctx.PostForm("content"),
		CategoryID: ctx.PostForm("category"),
	}
	imageFile, err := ctx.FormFile("image")
	if err != nil {
		imageFile = nil
	}

	data, errs := input.ValidatePost(h.db)
	for field, msgs := range forms.ValidateImage(imageFile, maxUploadBytes()) {
		errs[field] = append(errs[field], msgs...)
	}
	if errs.Any() {
		h.renderPostForm(ctx, nil, input, errs)
		return
	}

	imageURL := ""
	if imageFile != nil {
		imageURL, err = utils.SaveUpload(h.db, imageFile, config.Get().UploadDir)
		if err != nil {
			ctx.String(http.StatusInternalServerError, "Something went wrong.")
			return
		}
	}

	post := models.Post{
		UserID:     user.ID,
		Title:      data.Title,
		Content:    data.Content,
		CategoryID: data.CategoryID,
		Image:      imageURL,
	}
	if err := h.db.Create(&post).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	ctx.Redirect(http.StatusFound, "/home")
}

// UpdatePostForm renders the edit form for the owner.
func (h *Handler) UpdatePostForm(ctx *gin.Context) {
	post, ok := h.loadOwnedPost(ctx)
	if !ok {
		return
	}
	input := forms.PostInput{
		Title:      post.Title,
		Content:    post.Content,
		CategoryID: formatID(post.CategoryID),
	}
	h.renderPostForm(ctx, post, input, forms.Errors{})
}

// UpdatePost handles the edit form, owner only.
func (h *Handler) UpdatePost(ctx *gin.Context) {
	post, ok := h.loadOwnedPost(ctx)
	if !ok {
		return
	}

	input := forms.PostInput{
		Title:      ctx.PostForm("title"),
		Content:    ctx.PostForm("content"),
		CategoryID: ctx.PostForm("category"),
	}
	imageFile, err := ctx.FormFile("image")
	if err != nil {
		imageFile = nil
	}

	data, errs := input.ValidatePost(h.db)
	for field, msgs := range forms.ValidateImage(imageFile, maxUploadBytes()) {
		errs[field] = append(errs[field], msgs...)
	}
	if errs.Any() {
		h.renderPostForm(ctx, post, input, errs)
		return
	}

	updates := map[string]interface{}{
		"title":       data.Title,
		"content":     data.Content,
		"category_id": data.CategoryID,
	}
	if imageFile != nil {
		imageURL, err := utils.SaveUpload(h.db, imageFile, config.Get().UploadDir)
		if err != nil {
			ctx.String(http.StatusInternalServerError, "Something went wrong.")
			return
		}
		updates["image"] = imageURL
	}

	if err := h.db.Model(post).Updates(updates).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	utils.InvalidateByPrefix("cache:posts:list:")
	ctx.Redirect(http.StatusFound, "/profile")
}

// DeletePost removes a post, owner only, then returns to the profile.
func (h *Handler) DeletePost(ctx *gin.Context) {
	post, ok := h.loadOwnedPost(ctx)
	if !ok {
		return
	}
	if err := h.db.Delete(post).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	utils.InvalidateByPrefix("cache:posts:list:")
	ctx.Redirect(http.StatusFound, "/profile")
}

// LikePost toggles the caller's like and returns to the referring page.
func (h *Handler) LikePost(ctx *gin.Context) {
	user := currentUser(ctx)

	var post models.Post
	if err := h.db.First(&post, parseID(ctx.Param("id"))).Error; err != nil {
		ctx.String(http.StatusNotFound, "Post not found.")
		return
	}
	if _, err := models.TogglePostLike(h.db, post.ID, user.ID); err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	back := ctx.Request.Referer()
	if back == "" {
		back = "/home"
	}
	ctx.Redirect(http.StatusFound, back)
}

// RegisterForm renders the empty registration form.
func (h *Handler) RegisterForm(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "register.html", gin.H{
		"Errors":   forms.Errors{},
		"Username": "",
		"Email":    "",
	})
}

// Register creates an account and logs the new user straight in.
func (h *Handler) Register(ctx *gin.Context) {
	input := forms.RegisterInput{
		Username: ctx.PostForm("username"),
		Email:    ctx.PostForm("email"),
		Password: ctx.PostForm("password"),
	}

	data, errs := input.ValidateRegister(h.db)
	if errs.Any() {
		ctx.HTML(http.StatusBadRequest, "register.html", gin.H{
			"Errors":   errs,
			"Username": input.Username,
			"Email":    input.Email,
		})
		return
	}

	hash, err := utils.HashPassword(data.Password)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	user := models.User{Username: data.Username, Email: data.Email, PasswordHash: hash}
	if err := h.db.Create(&user).Error; err != nil {
		if dupErrs, ok := forms.DuplicateKey(err, "username", "username already exists"); ok {
			ctx.HTML(http.StatusBadRequest, "register.html", gin.H{
				"Errors":   dupErrs,
				"Username": input.Username,
				"Email":    input.Email,
			})
			return
		}
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	if err := h.sessions.Create(ctx, user.ID); err != nil {
		ctx.Redirect(http.StatusFound, "/login")
		return
	}
	ctx.Redirect(http.StatusFound, "/home")
}

// LoginForm renders the empty login form.
func (h *Handler) LoginForm(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "login.html", gin.H{"Error": "", "Username": ""})
}

// Login verifies credentials and opens a session.
func (h *Handler) Login(ctx *gin.Context) {
	username := ctx.PostForm("username")
	password := ctx.PostForm("password")

	var user models.User
	err := h.db.Where("username = ?", username).First(&user).Error
	if err != nil || !utils.CheckPassword(user.PasswordHash, password) {
		ctx.HTML(http.StatusUnauthorized, "login.html", gin.H{
			"Error":    "Invalid username or password.",
			"Username": username,
		})
		return
	}

	if err := h.sessions.Create(ctx, user.ID); err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	ctx.Redirect(http.StatusFound, "/home")
}

// Logout closes the session and returns to the login page.
func (h *Handler) Logout(ctx *gin.Context) {
	h.sessions.Destroy(ctx)
	ctx.Redirect(http.StatusFound, "/login")
}

// Profile shows the current user's posts, newest first.
func (h *Handler) Profile(ctx *gin.Context) {
	user := currentUser(ctx)
	cfg := config.Get()

	posts, pagination, err := models.ListPosts(h.db, models.PostFilter{
		OwnerID:  user.ID,
		Page:     parsePage(ctx.Query("page")),
		PageSize: cfg.PageSize,
	}, user.ID)
	if err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}

	ctx.HTML(http.StatusOK, "profile.html", gin.H{
		"User":       user,
		"Posts":      posts,
		"Pagination": pagination,
	})
}

// ChangePasswordForm renders the empty password form.
func (h *Handler) ChangePasswordForm(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "change_password.html", gin.H{
		"User":   currentUser(ctx),
		"Errors": forms.Errors{},
	})
}

// ChangePassword verifies the old credential and stores a new hash. The
// current session stays valid.
func (h *Handler) ChangePassword(ctx *gin.Context) {
	user := currentUser(ctx)

	errs := forms.ChangePasswordInput{
		OldPassword: ctx.PostForm("old_password"),
		NewPassword: ctx.PostForm("new_password"),
	}.ValidateChangePassword(user)
	if errs.Any() {
		ctx.HTML(http.StatusBadRequest, "change_password.html", gin.H{
			"User":   user,
			"Errors": errs,
		})
		return
	}

	hash, err := utils.HashPassword(ctx.PostForm("new_password"))
	if err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	if err := h.db.Model(user).Update("password_hash", hash).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	ctx.Redirect(http.StatusFound, "/profile")
}

func (h *Handler) loadOwnedPost(ctx *gin.Context) (*models.Post, bool) {
	user := currentUser(ctx)

	var post models.Post
	if err := h.db.First(&post, parseID(ctx.Param("id"))).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			ctx.String(http.StatusNotFound, "Post not found.")
			return nil, false
		}
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return nil, false
	}
	if post.UserID != user.ID {
		ctx.String(http.StatusForbidden, "You are not allowed to modify this post.")
		ctx.Abort()
		return nil, false
	}
	return &post, true
}

func (h *Handler) renderPostForm(ctx *gin.Context, post *models.Post, input forms.PostInput, errs forms.Errors) {
	var categories []models.Category
	if err := h.db.Order("name ASC").Find(&categories).Error; err != nil {
		ctx.String(http.StatusInternalServerError, "Something went wrong.")
		return
	}
	status := http.StatusOK
	if errs.Any() {
		status = http.StatusBadRequest
	}
	ctx.HTML(status, "create_post.html", gin.H{
		"User":       currentUser(ctx),
		"Post":       post,
		"Update":     post != nil,
		"Input":      input,
		"Categories": categories,
		"Errors":     errs,
	})
}

// currentUser returns the user resolved by the session middleware. Handlers
// behind WebAuthRequired can rely on it being present.
func currentUser(ctx *gin.Context) *models.User {
	if v, ok := ctx.Get(middleware.ContextUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return &models.User{}
}
