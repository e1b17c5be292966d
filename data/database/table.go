package database

import "go.mongodb.org/mongo-driver/mongo"

type Table interface {
	TableName() string
}

// Collection resolves the collection a model is stored in.
func Collection(db *mongo.Database, t Table) *mongo.Collection {
	return db.Collection(t.TableName())
}
