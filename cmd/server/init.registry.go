package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"meta_publisher/config"
	"meta_publisher/internal/database"
	"meta_publisher/internal/global"
)

// InitRegistry khởi tạo registry collections và đảm bảo indexes
func InitRegistry() {
	if err := InitCollections(global.MongoDB_Session, global.ServerConfig); err != nil {
		logrus.Fatalf("Failed to initialize collections: %v", err)
	}
	logrus.Info("Initialized collection registry")

	if err := database.EnsureIndexes(context.Background()); err != nil {
		logrus.Fatalf("Failed to ensure MongoDB indexes: %v", err)
	}
}

// InitCollections khởi tạo và đăng ký các collections MongoDB
func InitCollections(client *mongo.Client, cfg *config.Configuration) error {
	db := client.Database(cfg.MongoDB_DBName)

	if _, err := global.RegistryDatabase.Register(cfg.MongoDB_DBName, db); err != nil {
		return err
	}

	colNames := []string{
		global.MongoDB_ColNames.ContentPieces,
		global.MongoDB_ColNames.DeliveryHistory,
		global.MongoDB_ColNames.KVCache,
	}

	for _, name := range colNames {
		registered, err := global.RegistryCollections.Register(name, db.Collection(name))
		if err != nil {
			logrus.Errorf("Failed to register collection %s: %v", name, err)
			return err
		}
		if registered {
			logrus.Infof("Collection %s registered successfully", name)
		}
	}

	return nil
}
