package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"
)

// Configuration chứa thông tin tĩnh cần thiết để chạy ứng dụng.
// Bao gồm cấu hình database, server, các platform adapter và hệ thống approval.
type Configuration struct {
	Address               string `env:"ADDRESS" envDefault:":8080"`                // Địa chỉ server
	MongoDB_ConnectionURI string `env:"MONGODB_CONNECTION_URI,required"`           // URL kết nối cơ sở dữ liệu
	MongoDB_DBName        string `env:"MONGODB_DBNAME,required"`                   // Tên cơ sở dữ liệu
	CORS_Origins          string `env:"CORS_ORIGINS" envDefault:"*"`               // Các origins được phép (phân cách bởi dấu phẩy, * = tất cả)
	CORS_AllowCredentials bool   `env:"CORS_ALLOW_CREDENTIALS" envDefault:"false"` // Cho phép gửi credentials
	RateLimit_Max         int    `env:"RATE_LIMIT_MAX" envDefault:"100"`           // Số request tối đa trong window (0 = disable rate limit)
	RateLimit_Window      int    `env:"RATE_LIMIT_WINDOW" envDefault:"60"`         // Thời gian window (giây)
	RateLimit_Enabled     bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`      // Bật/tắt rate limiting

	// Public URL của service (dùng cho link approve/reject trong email)
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Platform Adapter Configuration
	TwitterBearerToken string `env:"TWITTER_BEARER_TOKEN"` // Bearer token cho Twitter API v2 (optional - adapter bị disable nếu thiếu)
	DiscordBotToken    string `env:"DISCORD_BOT_TOKEN"`    // Bot token cho Discord API (optional)
	DiscordChannelID   string `env:"DISCORD_CHANNEL_ID"`   // Channel ID để publish content lên Discord (optional)
	MediumAccessToken  string `env:"MEDIUM_ACCESS_TOKEN"`  // Integration token cho Medium API (optional)
	MediumAuthorID     string `env:"MEDIUM_AUTHOR_ID"`     // Author ID trên Medium (optional)

	// Approval System Configuration
	AutoApprove             bool   `env:"APPROVAL_AUTO_APPROVE" envDefault:"false"`            // Tự động approve không cần provider round-trip
	DefaultApprovalProvider string `env:"APPROVAL_DEFAULT_PROVIDER" envDefault:"discord"`      // Provider mặc định cho payload dạng plan
	AutoRejectDays          int    `env:"APPROVAL_AUTO_REJECT_DAYS" envDefault:"7"`            // Số ngày trước khi auto-reject request quá hạn
	ApprovalSweepSeconds    int    `env:"APPROVAL_SWEEP_SECONDS" envDefault:"60"`              // Chu kỳ sweep kiểm tra approval status (giây)
	ApprovalOffsetMinutes   int    `env:"APPROVAL_OFFSET_MINUTES" envDefault:"180"`            // Lead time mặc định trước giờ publish để xin approval (phút)
	DiscordApprovalChannel  string `env:"DISCORD_APPROVAL_CHANNEL_ID"`                         // Channel ID nhận approval request trên Discord (optional)
	MaintenanceSweepSeconds int    `env:"DELIVERY_MAINTENANCE_SWEEP_SECONDS" envDefault:"300"` // Chu kỳ maintenance sweep cho scheduled deliveries (giây)
	ScheduleReloadSeconds   int    `env:"DELIVERY_SCHEDULE_RELOAD_SECONDS" envDefault:"900"`   // Chu kỳ reload scheduled deliveries từ cache (giây, safety net)

	// Email Approval Provider (SMTP) Configuration (optional - provider bị disable nếu thiếu host)
	SMTPHost     string `env:"SMTP_HOST"`                  // SMTP server host
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"` // SMTP server port
	SMTPUser     string `env:"SMTP_USER"`                  // SMTP username
	SMTPPassword string `env:"SMTP_PASSWORD"`              // SMTP password
	SMTPFrom     string `env:"SMTP_FROM"`                  // Địa chỉ gửi email approval
	ApproverMail string `env:"APPROVER_EMAIL"`             // Địa chỉ nhận email approval request
}

// getEnvPath trả về đường dẫn đến file env dựa trên môi trường
func getEnvPath() string {
	// Mặc định sử dụng môi trường development
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = "development"
	}

	// Tìm thư mục config
	currentDir, err := os.Getwd()
	if err != nil {
		// Sử dụng fmt.Printf vì logger có thể chưa được init ở đây
		fmt.Printf("Không thể lấy được thư mục hiện tại: %v\n", err)
		return ""
	}

	// Tìm thư mục config/env
	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			// Tìm thấy thư mục config/env
			envPath := filepath.Join(envDir, fmt.Sprintf("%s.env", env))
			return envPath
		}

		// Đi lên thư mục cha
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return ""
		}
		currentDir = parentDir
	}
}

// NewConfig sẽ đọc dữ liệu cấu hình từ file env được cung cấp
func NewConfig(files ...string) *Configuration {
	envPath := getEnvPath()
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			// Không fatal: cho phép chạy thuần bằng environment variables (container)
			fmt.Printf("Không thể load file env tại %s: %v\n", envPath, err)
		}
	}

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		fmt.Printf("Lỗi khi parse config: %+v\n", err)
		return nil
	}

	return &cfg
}
