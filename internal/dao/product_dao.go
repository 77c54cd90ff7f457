package dao

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/mailer"
	"github.com/lromero/commerce-api/internal/models"
)

const defaultPageLimit = 10

// ProductDAO owns the products collection. It also resolves product owners
// (read-only) to enforce the deletion rule and notify premium owners.
type ProductDAO struct {
	products *mongo.Collection
	users    *mongo.Collection
	mail     mailer.Sender
	mailFrom string
}

func NewProductDAO(database *mongo.Database, mail mailer.Sender, mailFrom string) *ProductDAO {
	return &ProductDAO{
		products: database.Collection("products"),
		users:    database.Collection("users"),
		mail:     mail,
		mailFrom: mailFrom,
	}
}

// canMutateProducts reports whether a role may create or update products.
func canMutateProducts(role string) bool {
	return role == models.RolePremium || role == models.RoleAdmin
}

// canDeleteProduct: admins delete anything; premium users only their own
// products, matched by owner email.
func canDeleteProduct(role, email, ownerEmail string) bool {
	if role == models.RoleAdmin {
		return true
	}
	return role == models.RolePremium && email == ownerEmail
}

// shouldNotifyOwner: only premium owners get a deletion notification.
func shouldNotifyOwner(ownerRole string) bool {
	return ownerRole == models.RolePremium
}

func validateProductInput(in models.ProductInput) error {
	switch {
	case in.Title == "":
		return fmt.Errorf("title is required: %w", domain.ErrValidation)
	case in.Description == "":
		return fmt.Errorf("description is required: %w", domain.ErrValidation)
	case in.Code == "":
		return fmt.Errorf("code is required: %w", domain.ErrValidation)
	case in.Price == 0:
		return fmt.Errorf("price is required: %w", domain.ErrValidation)
	case in.Stock == 0:
		return fmt.Errorf("stock is required: %w", domain.ErrValidation)
	case in.Category == "":
		return fmt.Errorf("category is required: %w", domain.ErrValidation)
	}
	return nil
}

type pageMeta struct {
	totalPages int
	hasNext    bool
	next       int
	hasPrev    bool
	prev       int
}

func paginate(page, limit int, total int64) pageMeta {
	totalPages := int((total + int64(limit) - 1) / int64(limit))
	if totalPages == 0 {
		totalPages = 1
	}
	m := pageMeta{totalPages: totalPages}
	if page > 1 {
		m.hasPrev = true
		m.prev = page - 1
	}
	if page < totalPages {
		m.hasNext = true
		m.next = page + 1
	}
	return m
}

// GetAllProducts returns one page of the listing. Limit defaults to 10, page
// to 1; sort orders by price when "asc" or "desc" is requested and leaves the
// natural order otherwise. The original query parameters are echoed back.
func (d *ProductDAO) GetAllProducts(ctx context.Context, q models.ProductQuery) (models.ProductPage, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultPageLimit
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}

	filter := bson.M{}
	if q.Category != "" {
		filter["category"] = q.Category
	}

	total, err := d.products.CountDocuments(ctx, filter)
	if err != nil {
		return models.ProductPage{}, fmt.Errorf("count products: %w", err)
	}

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(int64(page-1) * int64(limit))
	switch q.Sort {
	case "asc":
		opts.SetSort(bson.D{{Key: "price", Value: 1}})
	case "desc":
		opts.SetSort(bson.D{{Key: "price", Value: -1}})
	}

	cursor, err := d.products.Find(ctx, filter, opts)
	if err != nil {
		return models.ProductPage{}, fmt.Errorf("list products: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Product{}
	if err := cursor.All(ctx, &docs); err != nil {
		return models.ProductPage{}, fmt.Errorf("decode products: %w", err)
	}

	meta := paginate(page, limit, total)
	return models.ProductPage{
		Docs:        docs,
		TotalPages:  meta.totalPages,
		HasNextPage: meta.hasNext,
		NextPage:    meta.next,
		HasPrevPage: meta.hasPrev,
		PrevPage:    meta.prev,
		Query:       q,
	}, nil
}

func (d *ProductDAO) GetProductByID(ctx context.Context, id string) (models.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid product id %q: %w", id, domain.ErrNotFound)
	}

	var product models.Product
	err = d.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return models.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return models.Product{}, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// CreateProduct validates the input, requires the acting session to be premium
// or admin, and records the session user as owner.
func (d *ProductDAO) CreateProduct(ctx context.Context, session models.Session, in models.ProductInput) (models.Product, error) {
	if err := validateProductInput(in); err != nil {
		return models.Product{}, err
	}
	if !canMutateProducts(session.Role) {
		return models.Product{}, fmt.Errorf("role %q may not create products: %w", session.Role, domain.ErrForbidden)
	}

	owner, err := primitive.ObjectIDFromHex(session.UserID)
	if err != nil {
		return models.Product{}, fmt.Errorf("invalid session user id %q: %w", session.UserID, domain.ErrNotFound)
	}

	product := models.Product{
		ID:          primitive.NewObjectID(),
		Title:       in.Title,
		Description: in.Description,
		Code:        in.Code,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Image:       in.Image,
		Owner:       owner,
	}
	if _, err := d.products.InsertOne(ctx, product); err != nil {
		return models.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return product, nil
}

// UpdateProduct applies an arbitrary partial update to one product.
func (d *ProductDAO) UpdateProduct(ctx context.Context, id string, patch map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", id, domain.ErrNotFound)
	}

	result, err := d.products.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": patch})
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteProduct enforces the ownership rule: admins may delete any product, a
// premium user only a product whose owner email matches their own. Deleting a
// product owned by a premium user mails that owner a deletion notification.
// The mail is best effort once the delete has happened.
func (d *ProductDAO) DeleteProduct(ctx context.Context, session models.Session, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", id, domain.ErrNotFound)
	}

	var product models.Product
	err = d.products.FindOne(ctx, bson.M{"_id": oid}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get product: %w", err)
	}

	var owner models.User
	err = d.users.FindOne(ctx, bson.M{"_id": product.Owner}).Decode(&owner)
	if err == mongo.ErrNoDocuments {
		return fmt.Errorf("resolve product owner: %w", domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("resolve product owner: %w", err)
	}

	if !canDeleteProduct(session.Role, session.Email, owner.Email) {
		return fmt.Errorf("role %q may not delete product %s: %w", session.Role, id, domain.ErrForbidden)
	}

	if _, err := d.products.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if shouldNotifyOwner(owner.Role) {
		err := d.mail.Send(mailer.Message{
			From:    d.mailFrom,
			To:      owner.Email,
			Subject: "Product Deletion Notification",
			Text:    fmt.Sprintf("Your product titled %q has been successfully deleted.", product.Title),
		})
		if err != nil {
			log.Error().Err(err).Str("owner", owner.Email).Msg("send deletion notification")
		}
	}
	return nil
}
