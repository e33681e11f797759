// 手动触发考试状态推进脚本
//
// 该功能已集成到主应用的后台定时任务中（间隔由 exam.scheduler_interval 决定）。
// 此脚本仅用于手动触发，例如服务停机期间错过了考试开始或结束时间。
//
// 用法: go run scripts/transition_exams.go

package main

import (
	"context"
	"examhub_backend/internal/config"
	"examhub_backend/internal/repository"
	"examhub_backend/internal/service"
	"examhub_backend/pkg/database"
	"examhub_backend/pkg/logger"
	"log"
)

func main() {
	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatalf("无法读取配置文件: %v", err)
	}

	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	db, err := database.InitDB(&cfg.Database, false)
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	svc := service.NewExamService(repository.NewExamRepository(db))
	activated, completed, err := svc.TransitionScheduledExams(context.Background())
	if err != nil {
		log.Fatalf("考试状态推进失败: %v", err)
	}

	log.Printf("完成：开放 %d 场考试，结束 %d 场考试", activated, completed)
}
