package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message is one direct message between two users. Image holds the hosted
// URL, or "" when the message has none.
type Message struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	SenderID   string             `bson:"senderId" json:"senderId"`
	ReceiverID string             `bson:"receiverId" json:"receiverId"`
	Text       string             `bson:"text" json:"text"`
	Image      string             `bson:"image" json:"image"`
	Read       bool               `bson:"read" json:"read"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (*Message) TableName() string {
	return "messages"
}

// Activity is the latest message exchanged with one conversation partner.
type Activity struct {
	PartnerID   string    `bson:"_id" json:"partnerId"`
	LastMessage Message   `bson:"lastMessage" json:"lastMessage"`
	LastAt      time.Time `bson:"lastAt" json:"lastAt"`
}
