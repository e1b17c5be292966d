package store

import (
	"context"
	"time"

	"TripChat/data/database"
	"TripChat/module/user/model"
	"TripChat/tools/errs"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errs.NewCodeError(errs.RecordNotFoundError, "user not found")
	ErrDuplicate = errs.NewCodeError(errs.ArgsError, "email or username already in use")
)

type Store interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	// UsernameTaken reports whether another account than exceptID uses username.
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	UpdateProfile(ctx context.Context, id string, p model.Profile) (*model.User, error)
	// ListExcept returns every other user, newest first.
	ListExcept(ctx context.Context, id string) ([]model.User, error)
	Exists(ctx context.Context, id string) (bool, error)
}

type mongoStore struct {
	coll *mongo.Collection
}

func NewMongo(db *mongo.Database) Store {
	return &mongoStore{coll: database.Collection(db, &model.User{})}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := database.Collection(db, &model.User{})
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	return errs.WrapMsg(err, "create user indexes")
}

var withoutPassword = bson.M{"password": 0}

func (s *mongoStore) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate.WrapMsg(err.Error())
		}
		return errs.WrapMsg(err, "insert user", "email", u.Email)
	}
	return nil
}

func (s *mongoStore) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	return s.findOne(ctx, bson.M{"_id": oid}, options.FindOne().SetProjection(withoutPassword))
}

// FindByEmail includes the password hash; it backs login.
func (s *mongoStore) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *mongoStore) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (*model.User, error) {
	var u model.User
	err := s.coll.FindOne(ctx, filter, opts...).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound.Wrap()
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "find user")
	}
	return &u, nil
}

func (s *mongoStore) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	filter := bson.M{"username": username}
	if oid, err := primitive.ObjectIDFromHex(exceptID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	return s.exists(ctx, filter)
}

func (s *mongoStore) EmailTaken(ctx context.Context, email string) (bool, error) {
	return s.exists(ctx, bson.M{"email": email})
}

func (s *mongoStore) Exists(ctx context.Context, id string) (bool, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	return s.exists(ctx, bson.M{"_id": oid})
}

func (s *mongoStore) exists(ctx context.Context, filter bson.M) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, errs.WrapMsg(err, "count users")
	}
	return n > 0, nil
}

func (s *mongoStore) UpdateProfile(ctx context.Context, id string, p model.Profile) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound.WrapMsg("malformed id", "id", id)
	}
	set := bson.M{
		"name":        p.Name,
		"lastName":    p.LastName,
		"username":    p.Username,
		"dateOfBirth": p.DateOfBirth,
		"bio":         p.Bio,
		"updatedAt":   time.Now().UTC(),
	}
	if p.ProfilePicture != "" {
		set["profilePicture"] = p.ProfilePicture
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(withoutPassword)
	var u model.User
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound.WrapMsg("", "id", id)
	}
	if mongo.IsDuplicateKeyError(err) {
		return nil, ErrDuplicate.WrapMsg(err.Error())
	}
	if err != nil {
		return nil, errs.WrapMsg(err, "update user", "id", id)
	}
	return &u, nil
}

func (s *mongoStore) ListExcept(ctx context.Context, id string) ([]model.User, error) {
	filter := bson.M{}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}
	opts := options.Find().
		SetProjection(withoutPassword).
		SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errs.WrapMsg(err, "list users")
	}
	out := make([]model.User, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, errs.WrapMsg(err, "decode users")
	}
	return out, nil
}
