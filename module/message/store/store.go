package store

import (
	"context"
	"time"

	"TripChat/data/database"
	"TripChat/module/message/model"
	"TripChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound matches errs.ErrRecordNotFound.
var ErrNotFound = errs.NewCodeError(errs.RecordNotFoundError, "message not found")

// Store persists messages. Unknown and malformed ids both yield ErrNotFound.
type Store interface {
	Create(ctx context.Context, m *model.Message) error
	FindByID(ctx context.Context, id string) (*model.Message, error)
	Delete(ctx context.Context, id string) error
	// Conversation returns every message between a and b, oldest first.
	Conversation(ctx context.Context, a, b string) ([]model.Message, error)
	// MarkRead flips read on the unread messages from sender to receiver.
	MarkRead(ctx context.Context, senderID, receiverID string) (int64, error)
	LastActivities(ctx context.Context, userID string) ([]model.Activity, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) Store {
	return &mongoStore{coll: database.Collection(db, &model.Message{})}
}

// EnsureIndexes creates the indexes the conversation queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := database.Collection(db, &model.Message{})
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "read", Value: 1}}},
	})
	return errs.WrapMsg(err, "create message indexes")
}

func (s *mongoStore) Create(ctx context.Context, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.UpdatedAt = m.CreatedAt
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, m); err != nil {
		return errs.WrapMsg(err, "insert message", "sender", m.SenderID, "receiver", m.ReceiverID)
	}
	return nil
}

func (s *mongoStore) FindByID(ctx context.Context, id string) (*model.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	var m model.Message
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound.WrapMsg("", "id", id)
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find message", "id", id)
	}
	return &m, nil
}

func (s *mongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return errs.WrapMsg(err, "delete message", "id", id)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound.WrapMsg("", "id", id)
	}
	return nil
}

func (s *mongoStore) Conversation(ctx context.Context, a, b string) ([]model.Message, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"senderId": a, "receiverId": b},
		bson.M{"senderId": b, "receiverId": a},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "find conversation", "a", a, "b", b)
	}
	out := make([]model.Message, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode conversation")
	}
	return out, nil
}

func (s *mongoStore) MarkRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"senderId": senderID, "receiverId": receiverID, "read": false},
		bson.M{"$set": bson.M{"read": true, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, errs.WrapMsg(err, "mark read", "sender", senderID, "receiver", receiverID)
	}
	return res.ModifiedCount, nil
}

func (s *mongoStore) LastActivities(ctx context.Context, userID string) ([]model.Activity, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"senderId": userID},
			bson.M{"receiverId": userID},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			// partner is whichever side is not the user
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$senderId", userID}}, "$receiverId", "$senderId",
			}},
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"lastAt":      bson.M{"$first": "$createdAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastAt", Value: -1}}}},
	}
	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, errs.WrapMsg(err, "aggregate last activities", "user", userID)
	}
	out := make([]model.Activity, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode last activities")
	}
	return out, nil
}
