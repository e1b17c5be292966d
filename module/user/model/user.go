package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultProfilePicture = "default.jpg"

// User is an account. Password holds the bcrypt hash and is never serialised.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name           string             `bson:"name" json:"name"`
	LastName       string             `bson:"lastName" json:"lastName"`
	Username       string             `bson:"username" json:"username"`
	DateOfBirth    time.Time          `bson:"dateOfBirth" json:"dateOfBirth"`
	Email          string             `bson:"email" json:"email"`
	Password       string             `bson:"password" json:"-"`
	ProfilePicture string             `bson:"profilePicture" json:"profilePicture"`
	Bio            string             `bson:"bio" json:"bio"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (*User) TableName() string {
	return "users"
}

func (u *User) GetUserID() string {
	return u.ID.Hex()
}

// Public is the shape returned by register and login.
type Public struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	LastName       string    `json:"lastName"`
	Username       string    `json:"username"`
	DateOfBirth    time.Time `json:"dateOfBirth"`
	Email          string    `json:"email"`
	ProfilePicture string    `json:"profilePicture"`
	Bio            string    `json:"bio"`
}

func (u *User) Public() Public {
	return Public{
		ID:             u.ID.Hex(),
		Name:           u.Name,
		LastName:       u.LastName,
		Username:       u.Username,
		DateOfBirth:    u.DateOfBirth,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Bio:            u.Bio,
	}
}

// Profile is the set of fields an update may change.
type Profile struct {
	Name           string
	LastName       string
	Username       string
	DateOfBirth    time.Time
	Bio            string
	ProfilePicture string // empty keeps the current picture
}
