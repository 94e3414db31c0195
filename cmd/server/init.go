package main

import (
	"meta_publisher/config"
	"meta_publisher/internal/database"
	"meta_publisher/internal/global"

	"github.com/sirupsen/logrus"
)

// InitGlobal khởi tạo các biến toàn cục
func InitGlobal() {
	initValidator()        // Khởi tạo validator
	initConfig()           // Khởi tạo cấu hình server
	initDatabase_MongoDB() // Khởi tạo kết nối database
}

// initValidator khởi tạo validator và các custom validation rules
func initValidator() {
	global.InitValidator()
	logrus.Info("Initialized validator")
}

// initConfig đọc cấu hình từ env
func initConfig() {
	global.ServerConfig = config.NewConfig()
	if global.ServerConfig == nil {
		logrus.Fatal("Failed to load server configuration")
	}
	logrus.Info("Initialized server configuration")
}

// initDatabase_MongoDB kết nối MongoDB
func initDatabase_MongoDB() {
	client, err := database.GetInstance(global.ServerConfig)
	if err != nil {
		logrus.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	global.MongoDB_Session = client
	logrus.Info("Initialized MongoDB connection")
}
