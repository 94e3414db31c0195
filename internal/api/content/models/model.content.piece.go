// Package models - ContentPiece thuộc domain Content.
package models

// Trạng thái lifecycle của một ContentPiece
const (
	ContentStatusPlanned   = "PLANNED"   // Đã lên kế hoạch, chưa có content
	ContentStatusDraft     = "DRAFT"     // Đã có content nháp
	ContentStatusReady     = "READY"     // Sẵn sàng để publish
	ContentStatusPublished = "PUBLISHED" // Đã publish lên platform (terminal)
	ContentStatusCancelled = "CANCELLED" // Đã hủy (terminal)
)

// ContentPiece - Một đơn vị content có thể publish lên platform.
// ID là string do planning pipeline cấp, không phải ObjectID.
// Orchestrator chỉ mutate Status, PlatformID, PublishedURL rồi persist lại entity store.
type ContentPiece struct {
	ID                string   `json:"id" bson:"_id" validate:"required"`
	Topic             string   `json:"topic" bson:"topic"`
	Format            string   `json:"format" bson:"format"`                                       // post, thread, article, ...
	Platform          string   `json:"platform" bson:"platform" validate:"required,platform_name"` // key trong adapter registry
	GoalRefs          []string `json:"goalRefs,omitempty" bson:"goalRefs,omitempty"`               // Các goal-reference ids mà piece này phục vụ
	ScheduledDate     int64    `json:"scheduledDate,omitempty" bson:"scheduledDate,omitempty"`     // Epoch ms
	Keywords          []string `json:"keywords,omitempty" bson:"keywords,omitempty"`
	MediaRequirements []string `json:"mediaRequirements,omitempty" bson:"mediaRequirements,omitempty"`
	Brief             string   `json:"brief,omitempty" bson:"brief,omitempty"`
	Status            string   `json:"status" bson:"status"` // PLANNED, DRAFT, READY, PUBLISHED, CANCELLED

	// Nội dung
	Content          string `json:"content,omitempty" bson:"content,omitempty"`                   // Content thô/generated
	FormattedContent string `json:"formattedContent,omitempty" bson:"formattedContent,omitempty"` // Content đã format theo platform

	// Kết quả publish (set bởi orchestrator sau khi publish thành công)
	PlatformID   string `json:"platformId,omitempty" bson:"platformId,omitempty"`     // Id do platform cấp (tweet id, message id, ...)
	PublishedURL string `json:"publishedUrl,omitempty" bson:"publishedUrl,omitempty"` // URL public sau khi post

	CreatedAt int64 `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt int64 `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// IsTerminal kiểm tra piece đã ở trạng thái terminal chưa
func (p *ContentPiece) IsTerminal() bool {
	return p.Status == ContentStatusPublished || p.Status == ContentStatusCancelled
}
