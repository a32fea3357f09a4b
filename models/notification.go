package models

import "time"

// Notification is an abstract event emitted by the engine. Delivery over a
// concrete channel (push, email, SMS) belongs to an external collaborator;
// the engine only records and enqueues.
type Notification struct {
	ID        string            `bson:"id" json:"id"`
	UserID    string            `bson:"userId" json:"userId"`
	Type      string            `bson:"type" json:"type"`
	Title     string            `bson:"title" json:"title"`
	Message   string            `bson:"message" json:"message"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Sent      bool              `bson:"sent" json:"sent"`
	Read      bool              `bson:"read" json:"read"`
	CreatedAt time.Time         `bson:"createdAt" json:"createdAt"`
}
