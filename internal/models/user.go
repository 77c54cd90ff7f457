package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authorization tiers. Premium users may own products; admins may do anything.
const (
	RoleUser    = "user"
	RolePremium = "premium"
	RoleAdmin   = "admin"
)

// Document is a reference to an uploaded upgrade document. Exactly three of
// these must be attached before a premium upgrade is considered complete.
type Document struct {
	DocName      string `bson:"doc_name" json:"doc_name"`
	DocReference string `bson:"doc_reference" json:"doc_reference"`
}

// StoredFile describes a file placed in the upload store.
type StoredFile struct {
	Filename     string `bson:"filename" json:"filename"`
	OriginalName string `bson:"originalname" json:"originalname"`
}

type User struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	FirstName            string             `bson:"first_name" json:"first_name"`
	LastName             string             `bson:"last_name" json:"last_name"`
	Age                  int                `bson:"age" json:"age"`
	Email                string             `bson:"email" json:"email" validate:"required,email"`
	Password             string             `bson:"password,omitempty" json:"-"`
	Role                 string             `bson:"role" json:"role"`
	LastConnection       time.Time          `bson:"last_connection" json:"last_connection"`
	ResetPasswordToken   string             `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpires time.Time          `bson:"reset_password_expires,omitempty" json:"-"`
	Documents            []Document         `bson:"documents,omitempty" json:"documents,omitempty"`
	ProfilePic           *StoredFile        `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`
	Cart                 primitive.ObjectID `bson:"cart,omitempty" json:"cart,omitempty"`
}

// Session is the per-request snapshot of the authenticated user, carried in
// the signed session token and restored by the auth middleware.
type Session struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Age       int    `json:"age"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Cart      string `json:"cart"`
}
