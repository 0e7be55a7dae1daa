package main

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/evotehq/evote-backend/config"
	"github.com/evotehq/evote-backend/internal/api"
	"github.com/evotehq/evote-backend/internal/logging"
	"github.com/evotehq/evote-backend/internal/redis"
)

func main() {
	config.LoadEnv()
	logging.Init(!config.IsProduction())
	redis.InitRedis()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	api.RegisterRoutes(r, api.NewHandlers(redis.Rdb))

	port := config.GetEnv("PORT", "8080")
	logging.Info("listening", zap.String("port", port))
	if err := r.Run(":" + port); err != nil {
		logging.Fatal("server stopped", zap.Error(err))
	}
}
