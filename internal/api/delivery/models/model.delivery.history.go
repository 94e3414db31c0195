// Package models - DeliveryHistory thuộc domain Delivery.
package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryHistory - Terminal outcome của một lần delivery content.
// Mỗi piece có thể có nhiều bản ghi (failed rồi published lại, ...).
type DeliveryHistory struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	PieceID      string             `json:"pieceId" bson:"pieceId" index:"single:1"`
	Platform     string             `json:"platform" bson:"platform" index:"single:1"`
	Outcome      string             `json:"outcome" bson:"outcome" index:"single:1"` // published, failed, dropped, cancelled, expired
	Message      string             `json:"message,omitempty" bson:"message,omitempty"`
	Attempts     int                `json:"attempts" bson:"attempts"`
	PublishedURL string             `json:"publishedUrl,omitempty" bson:"publishedUrl,omitempty"`
	CreatedAt    int64              `json:"createdAt" bson:"createdAt"`
}
