package dao

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lromero/commerce-api/internal/domain"
	"github.com/lromero/commerce-api/internal/models"
)

// Users inactive for longer than this are eligible for deletion.
const inactivityWindow = 2 * 24 * time.Hour

func inactiveCutoff(now time.Time) time.Time {
	return now.Add(-inactivityWindow)
}

func inactiveFilter(now time.Time) bson.M {
	return bson.M{"last_connection": bson.M{"$lt": inactiveCutoff(now)}}
}

// UserDAO is the only access path to the users collection.
type UserDAO struct {
	col *mongo.Collection
}

func NewUserDAO(database *mongo.Database) *UserDAO {
	return &UserDAO{col: database.Collection("users")}
}

func (d *UserDAO) GetUserByID(ctx context.Context, id string) (models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.User{}, fmt.Errorf("invalid user id %q: %w", id, domain.ErrNotFound)
	}

	var user models.User
	err = d.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, domain.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

func (d *UserDAO) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := d.col.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, domain.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (d *UserDAO) GetAllUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := d.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

func (d *UserDAO) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	count, err := d.col.CountDocuments(ctx, bson.M{"email": user.Email})
	if err != nil {
		return models.User{}, fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return models.User{}, fmt.Errorf("email %q: %w", user.Email, domain.ErrDuplicate)
	}

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := d.col.InsertOne(ctx, user); err != nil {
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// UpdateUserRole sets the role unconditionally; upgrade preconditions
// (document count) are the caller's responsibility.
func (d *UserDAO) UpdateUserRole(ctx context.Context, id, role string) error {
	return d.updateByID(ctx, id, bson.M{"$set": bson.M{"role": role}})
}

func (d *UserDAO) UpdateLastConnection(ctx context.Context, id string, t time.Time) error {
	return d.updateByID(ctx, id, bson.M{"$set": bson.M{"last_connection": t}})
}

func (d *UserDAO) AttachDocuments(ctx context.Context, id string, docs []models.Document) error {
	return d.updateByID(ctx, id, bson.M{"$push": bson.M{"documents": bson.M{"$each": docs}}})
}

func (d *UserDAO) SetProfilePic(ctx context.Context, id string, pic models.StoredFile) error {
	return d.updateByID(ctx, id, bson.M{"$set": bson.M{"profile_pic": pic}})
}

func (d *UserDAO) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return d.updateByID(ctx, id, bson.M{"$set": bson.M{
		"reset_password_token":   token,
		"reset_password_expires": expires,
	}})
}

// UserByResetToken resolves an unexpired recovery token to its user.
func (d *UserDAO) UserByResetToken(ctx context.Context, token string) (models.User, error) {
	var user models.User
	err := d.col.FindOne(ctx, bson.M{
		"reset_password_token":   token,
		"reset_password_expires": bson.M{"$gt": time.Now()},
	}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return models.User{}, domain.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by reset token: %w", err)
	}
	return user, nil
}

// UpdatePassword stores the new hash and consumes any outstanding reset token.
func (d *UserDAO) UpdatePassword(ctx context.Context, id, hash string) error {
	return d.updateByID(ctx, id, bson.M{
		"$set":   bson.M{"password": hash},
		"$unset": bson.M{"reset_password_token": "", "reset_password_expires": ""},
	})
}

// FindInactiveUsers returns every user whose last login is older than the
// inactivity window, and no others.
func (d *UserDAO) FindInactiveUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := d.col.Find(ctx, inactiveFilter(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("find inactive users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode inactive users: %w", err)
	}
	return users, nil
}

func (d *UserDAO) DeleteInactiveUsers(ctx context.Context) (int64, error) {
	result, err := d.col.DeleteMany(ctx, inactiveFilter(time.Now()))
	if err != nil {
		log.Error().Err(err).Msg("delete inactive users")
		return 0, fmt.Errorf("delete inactive users: %w", err)
	}
	return result.DeletedCount, nil
}

func (d *UserDAO) DeleteUserByID(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", id, domain.ErrNotFound)
	}
	result, err := d.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (d *UserDAO) updateByID(ctx context.Context, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", id, domain.ErrNotFound)
	}
	result, err := d.col.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
