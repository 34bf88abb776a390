package main

import (
	"time"

	"go.uber.org/zap"

	"goblog/config"
	"goblog/models"
	"goblog/routes"
	"goblog/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = zap.L().Sync() }()

	db := config.InitDatabase(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.PostLike{},
		&models.Comment{},
		&models.Session{},
		&models.PageView{},
		&models.UploadedFile{},
	)

	utils.StartUploadCleaner(db, 5*time.Minute, time.Hour)

	r := routes.SetupRouter(db)

	zap.L().Info("server starting", zap.String("port", cfg.AppPort))
	if err := utils.RunServer(":"+cfg.AppPort, r); err != nil {
		zap.L().Fatal("server exited", zap.Error(err))
	}
}
