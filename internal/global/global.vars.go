package global

import (
	"meta_publisher/config"
	"meta_publisher/internal/registry"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoDB_CollectionName chứa tên các collection trong MongoDB
type MongoDB_CollectionName struct {
	ContentPieces   string // Tên collection cho content pieces (entity store)
	DeliveryHistory string // Tên collection cho delivery history (terminal outcomes)
	KVCache         string // Tên collection cho durable keyed cache (scheduling state, approvals, locks)
}

// Các biến toàn cục
var Validate *validator.Validate       // Biến để xác thực dữ liệu
var MongoDB_Session *mongo.Client      // Phiên kết nối tới MongoDB
var ServerConfig *config.Configuration // Cấu hình của server
var MongoDB_ColNames = MongoDB_CollectionName{
	ContentPieces:   "content_pieces",
	DeliveryHistory: "delivery_history",
	KVCache:         "kv_cache",
}

// Các Registry
var RegistryCollections = registry.NewRegistry[*mongo.Collection]() // Registry chứa các collections
var RegistryDatabase = registry.NewRegistry[*mongo.Database]()      // Registry chứa các databases
