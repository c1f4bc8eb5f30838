package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// File is an uploaded blob kept in the files collection.
type File struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	Name        string             `bson:"name" json:"name"`
	Data        []byte             `bson:"data" json:"-"`
	ContentType string             `bson:"contentType" json:"contentType"`
}
