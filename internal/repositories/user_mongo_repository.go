package repositories

import (
	"context"
	"errors"
	"fmt"

	"userbook/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// userDocument is the stored shape of a user in the users collection.
type userDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Email    string             `bson:"email"`
	Password string             `bson:"password"`
}

func newUserDocument(user *models.User) userDocument {
	return userDocument{
		Name:     user.Name,
		Email:    user.Email,
		Password: user.Password.Value(),
	}
}

func (doc userDocument) toModel() models.User {
	return models.User{
		ID:       doc.ID.Hex(),
		Name:     doc.Name,
		Email:    doc.Email,
		Password: models.Credential(doc.Password),
	}
}

// MongoUserRepository is a MongoDB implementation of UserRepository.
type MongoUserRepository struct {
	coll *mongo.Collection
}

// NewMongoUserRepository creates a repository on top of an open collection.
func NewMongoUserRepository(coll *mongo.Collection) *MongoUserRepository {
	return &MongoUserRepository{
		coll: coll,
	}
}

// Save inserts a new document; the driver assigns the ObjectID.
func (r *MongoUserRepository) Save(ctx context.Context, user *models.User) (string, error) {
	res, err := r.coll.InsertOne(ctx, newUserDocument(user))
	if err != nil {
		return "", mongoError("failed to save user", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to save user: unexpected inserted id type %T", res.InsertedID)
	}
	user.ID = oid.Hex()
	return user.ID, nil
}

// FindAll returns every document in natural order.
func (r *MongoUserRepository) FindAll(ctx context.Context) ([]models.User, error) {
	return r.find(ctx, bson.D{}, "failed to get all users")
}

// FindByID returns the document with the given hex ObjectID.
func (r *MongoUserRepository) FindByID(ctx context.Context, id string) (models.User, bool, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return models.User{}, false, err
	}

	var doc userDocument
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, false, nil
		}
		return models.User{}, false, mongoError(fmt.Sprintf("failed to get user by ID %s", id), err)
	}
	return doc.toModel(), true, nil
}

// FindByName returns every document whose name matches exactly.
func (r *MongoUserRepository) FindByName(ctx context.Context, name string) ([]models.User, error) {
	return r.find(ctx, bson.D{{Key: "name", Value: name}}, fmt.Sprintf("failed to get users by name %s", name))
}

// FindByEmail returns every document whose email matches exactly.
func (r *MongoUserRepository) FindByEmail(ctx context.Context, email string) ([]models.User, error) {
	return r.find(ctx, bson.D{{Key: "email", Value: email}}, fmt.Sprintf("failed to get users by email %s", email))
}

// Update sets name and password on the first document matching the email.
// The returned count is the number of matched documents, so an update that
// rewrites identical values still reports 1.
func (r *MongoUserRepository) Update(ctx context.Context, user *models.User) (int64, error) {
	filter := bson.D{{Key: "email", Value: user.Email}}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: user.Name},
		{Key: "password", Value: user.Password.Value()},
	}}}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return 0, mongoError(fmt.Sprintf("failed to update user with email %s", user.Email), err)
	}
	return res.MatchedCount, nil
}

// Delete removes the document with the given hex ObjectID.
func (r *MongoUserRepository) Delete(ctx context.Context, id string) (int64, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return 0, err
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, mongoError(fmt.Sprintf("failed to delete user %s", id), err)
	}
	return res.DeletedCount, nil
}

// Ping checks that the primary is reachable.
func (r *MongoUserRepository) Ping(ctx context.Context) error {
	if err := r.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

func (r *MongoUserRepository) find(ctx context.Context, filter bson.D, errMsg string) ([]models.User, error) {
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, mongoError(errMsg, err)
	}

	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mongoError(errMsg, err)
	}

	users := make([]models.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, doc.toModel())
	}
	return users, nil
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

// mongoError wraps err, tagging network and server-selection failures with
// ErrConnection so callers can tell an unreachable store from a bad request.
func mongoError(msg string, err error) error {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%s: %w: %v", msg, ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
