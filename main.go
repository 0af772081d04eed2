package main

import (
	"time"

	"go.uber.org/zap"

	"github.com/linklet/linklet/config"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/routes"
	"github.com/linklet/linklet/utils"
)

func main() {
	cfg := config.Load()

	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer utils.Logger.Sync()

	db := config.InitDatabase(
		&models.User{},
		&models.PendingUser{},
		&models.RefreshToken{},
		&models.Post{},
		&models.Comment{},
		&models.PostLike{},
		&models.CommentLike{},
		&models.Message{},
		&models.JobListing{},
	)

	mailer := utils.NewAsyncMailer(cfg)
	defer mailer.Close()

	utils.StartExpiryCleaner(db, 10*time.Minute)

	router := routes.SetupRouter(db, mailer)

	utils.Logger.Info("server starting", zap.String("port", cfg.AppPort))
	if err := utils.GraceServer(":"+cfg.AppPort, router); err != nil {
		utils.Logger.Fatal("server exited", zap.Error(err))
	}
}
