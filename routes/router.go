package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"goblog/auth"
	"goblog/config"
	"goblog/controllers"
	"goblog/middleware"
	"goblog/utils"
	"goblog/web"
)

// SetupRouter wires routes, middlewares, controllers and the HTML pages.
func SetupRouter(db *gorm.DB) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	// Record PV after each request
	r.Use(middleware.PageViewRecorder(db))

	r.Static("/static", "./static")
	r.SetHTMLTemplate(web.Templates())

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	sessions := auth.NewManager(db, time.Duration(cfg.SessionHours)*time.Hour)
	pages := web.NewHandler(db, sessions)

	// HTML surface: session cookie auth, redirects to /login when anonymous.
	r.GET("/", pages.Root)
	r.GET("/login", pages.LoginForm)
	r.POST("/login", pages.Login)
	r.GET("/register-form", pages.RegisterForm)
	r.POST("/register-form", pages.Register)
	r.POST("/logout", pages.Logout)

	site := r.Group("")
	site.Use(middleware.WebAuthRequired(sessions))
	site.GET("/home", pages.Home)
	site.POST("/home", pages.HomeComment)
	site.GET("/post/:id", pages.PostDetail)
	site.POST("/post/:id", pages.PostDetailComment)
	site.GET("/create", pages.CreatePostForm)
	site.POST("/create", pages.CreatePost)
	site.GET("/update-post/:id", pages.UpdatePostForm)
	site.POST("/update-post/:id", pages.UpdatePost)
	site.POST("/delete-post/:id", pages.DeletePost)
	site.POST("/like-post/:id", pages.LikePost)
	site.GET("/profile", pages.Profile)
	site.GET("/change-password", pages.ChangePasswordForm)
	site.POST("/change-password", pages.ChangePassword)

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(db)
	categoryController := controllers.NewCategoryController(db)
	commentController := controllers.NewCommentController(db)
	statsController := controllers.NewStatsController(db)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.POST("/change-password", middleware.AuthRequired(), authController.ChangePassword)

	tokenGroup := api.Group("/token")
	tokenGroup.Use(middleware.RateLimitMiddleware())
	tokenGroup.POST("", authController.Token)
	tokenGroup.POST("/refresh", authController.RefreshToken)

	api.GET("/stats", statsController.GetStats)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())
	protected.GET("/posts", postController.ListPosts)
	protected.GET("/posts/:id", postController.GetPost)
	protected.POST("/posts", postController.CreatePost)
	protected.PUT("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/posts/:id/like", postController.ToggleLike)
	protected.POST("/posts/:id/comments", postController.CreateComment)
	protected.GET("/users/me/posts", postController.ListMyPosts)

	protected.GET("/categories", categoryController.ListCategories)
	protected.POST("/categories", categoryController.CreateCategory)
	protected.GET("/categories/:id", categoryController.GetCategory)
	protected.PUT("/categories/:id", categoryController.UpdateCategory)
	protected.DELETE("/categories/:id", categoryController.DeleteCategory)

	protected.GET("/comments", commentController.ListComments)
	protected.POST("/comments", commentController.CreateComment)
	protected.GET("/comments/:id", commentController.GetComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		path := ctx.Request.URL.Path
		if strings.HasPrefix(path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		ctx.String(http.StatusNotFound, "Page not found.")
	})

	return r
}
