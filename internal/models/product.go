package models

import (
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Code        string             `bson:"code" json:"code"`
	Price       float64            `bson:"price" json:"price"`
	Stock       int                `bson:"stock" json:"stock"`
	Category    string             `bson:"category" json:"category"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Owner       primitive.ObjectID `bson:"owner" json:"owner"`
}

// ProductInput is the client-supplied part of a product. Owner is always
// taken from the acting session, never from the request.
type ProductInput struct {
	Title       string  `json:"title" form:"title"`
	Description string  `json:"description" form:"description"`
	Code        string  `json:"code" form:"code"`
	Price       float64 `json:"price" form:"price"`
	Stock       int     `json:"stock" form:"stock"`
	Category    string  `json:"category" form:"category"`
	Image       string  `json:"image" form:"image"`
}

// ProductQuery are the listing parameters, echoed back with each page.
type ProductQuery struct {
	Limit    int    `json:"limit"`
	Page     int    `json:"page"`
	Sort     string `json:"sort"`     // "asc", "desc" or "none" (by price)
	Category string `json:"category"` // empty means no filter
}

// ProductPage is one page of a product listing with navigation metadata.
type ProductPage struct {
	Docs        []Product    `json:"docs"`
	TotalPages  int          `json:"totalPages"`
	HasNextPage bool         `json:"hasNextPage"`
	NextPage    int          `json:"nextPage,omitempty"`
	HasPrevPage bool         `json:"hasPrevPage"`
	PrevPage    int          `json:"prevPage,omitempty"`
	Query       ProductQuery `json:"query"`
}
