// @title Corp Learning 后端 API
// @version 1.0
// @description 企业培训平台后端：课程学习进度、在线测评与管理后台。

// @contact.name API支持
// @contact.email support@corp-learning.local

// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

package main

import (
	"flag"
	"log"

	"corp_learning_backend/internal/app"
	"corp_learning_backend/internal/config"
	"corp_learning_backend/pkg/logger"
)

func main() {
	// 命令行参数
	seedOnly := flag.Bool("seed-only", false, "只执行数据库迁移与初始数据写入，完成后退出")
	flag.Parse()

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.SeedOnly = *seedOnly

	application, err := app.NewApp(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer logger.Log.Sync()

	if *seedOnly {
		log.Println("数据库初始化完成，退出程序")
		return
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
