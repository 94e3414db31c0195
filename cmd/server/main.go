package main

import (
	"context"
	"fmt"

	"meta_publisher/internal/global"
	"meta_publisher/internal/logger"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(deps *pipelineDeps) {
	app := InitFiberApp(deps)

	address := global.ServerConfig.Address
	log := logger.GetAppLogger()
	log.WithField("address", address).Info("Starting Fiber server...")

	if err := app.Listen(address); err != nil {
		log.Fatalf("Error in Fiber Listen: %v", err)
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry collections + indexes
	InitRegistry()

	// Dựng pipeline: cache, adapters, approval coordinator, orchestrator
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps, err := InitPipeline(ctx)
	if err != nil {
		logger.GetAppLogger().Fatalf("Failed to initialize delivery pipeline: %v", err)
	}
	defer deps.Orchestrator.Stop()

	// Chạy các background workers
	StartWorkers(ctx, deps)

	// Chạy Fiber server trên main thread
	main_thread(deps)
}
