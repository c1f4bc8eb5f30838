package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unicatolica/registro-huellas/internal/models"
)

const (
	accessesCollection = "accesos"
	filesCollection    = "files"
)

// MongoAccesses is the AccessStore backed by the accesos collection.
type MongoAccesses struct {
	col *mongo.Collection
}

func NewMongoAccesses(db *mongo.Database) *MongoAccesses {
	return &MongoAccesses{col: db.Collection(accessesCollection)}
}

// EnsureIndexes creates the open-session uniqueness index and the history
// listing index.
func (s *MongoAccesses) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "personaId", Value: 1}, {Key: "fecha", Value: 1}},
			Options: options.Index().SetName("uniq_sesion_abierta").SetUnique(true).
				SetPartialFilterExpression(bson.M{"abierto": true}),
		},
		{
			Keys:    bson.D{{Key: "fecha", Value: -1}, {Key: "horaEntrada", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("idx_historial"),
		},
		{
			Keys:    bson.D{{Key: "carnet", Value: 1}, {Key: "fecha", Value: 1}},
			Options: options.Index().SetName("idx_carnet_fecha"),
		},
		{
			Keys:    bson.D{{Key: "numeroTarjeta", Value: 1}, {Key: "fecha", Value: 1}},
			Options: options.Index().SetName("idx_tarjeta_fecha"),
		},
	})
	return err
}

func (s *MongoAccesses) CloseOpen(ctx context.Context, key SessionKey, horaSalida string) (*models.Acceso, error) {
	filter := bson.M{
		"personaId":  key.PersonaID,
		"abierto":    true,
		"fecha":      key.Fecha,
		"horaSalida": bson.M{"$exists": false},
	}
	update := bson.M{"$set": bson.M{"horaSalida": horaSalida, "abierto": false}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetReturnDocument(options.After)

	var a models.Acceso
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *MongoAccesses) Insert(ctx context.Context, a *models.Acceso) error {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	_, err := s.col.InsertOne(ctx, a)
	return translateWriteError(err)
}

func (s *MongoAccesses) Search(ctx context.Context, q ListQuery) ([]models.Acceso, int64, error) {
	filter := buildFilter(q.Conditions)
	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	cursor, err := s.col.Find(ctx, filter, findOptions(q))
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	accesses := []models.Acceso{}
	if err := cursor.All(ctx, &accesses); err != nil {
		return nil, 0, err
	}
	return accesses, total, nil
}

// MongoFiles is the FileStore backed by the files collection.
type MongoFiles struct {
	col *mongo.Collection
}

func NewMongoFiles(db *mongo.Database) *MongoFiles {
	return &MongoFiles{col: db.Collection(filesCollection)}
}

func (s *MongoFiles) Save(ctx context.Context, f *models.File) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	_, err := s.col.InsertOne(ctx, f)
	return err
}
