package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unicatolica/registro-huellas/internal/models"
)

const personsCollection = "huellas"

// MongoPersons is the PersonStore backed by the huellas collection.
type MongoPersons struct {
	col *mongo.Collection
}

func NewMongoPersons(db *mongo.Database) *MongoPersons {
	return &MongoPersons{col: db.Collection(personsCollection)}
}

// EnsureIndexes creates the card uniqueness and listing indexes.
func (s *MongoPersons) EnsureIndexes(ctx context.Context) error {
	nonEmpty := func(field string) bson.M {
		return bson.M{field: bson.M{"$type": "string", "$gt": ""}}
	}
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "carnet", Value: 1}},
			Options: options.Index().SetName("uniq_carnet").SetUnique(true).
				SetPartialFilterExpression(nonEmpty("carnet")),
		},
		{
			Keys: bson.D{{Key: "numeroTarjeta", Value: 1}},
			Options: options.Index().SetName("uniq_numero_tarjeta").SetUnique(true).
				SetPartialFilterExpression(nonEmpty("numeroTarjeta")),
		},
		{
			Keys:    bson.D{{Key: "rolUniversidad", Value: 1}, {Key: "fechaExpiracion", Value: 1}},
			Options: options.Index().SetName("idx_rol_expiracion"),
		},
		{
			Keys:    bson.D{{Key: "nombre", Value: 1}, {Key: "apellido", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("idx_nombre_apellido"),
		},
	}
	_, err := s.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (s *MongoPersons) Insert(ctx context.Context, p *models.Person) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if err := s.checkCards(ctx, p.ID, cards(p)); err != nil {
		return err
	}
	_, err := s.col.InsertOne(ctx, p)
	return translateWriteError(err)
}

// checkCards rejects card values already held by another record in either
// card field. The per-field unique indexes still guard concurrent writes of
// the same field.
func (s *MongoPersons) checkCards(ctx context.Context, id primitive.ObjectID, want []cardField) error {
	for _, c := range want {
		filter := bson.M{
			"_id": bson.M{"$ne": id},
			"$or": bson.A{
				bson.M{"carnet": c.value},
				bson.M{"numeroTarjeta": c.value},
			},
		}
		n, err := s.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return err
		}
		if n > 0 {
			return &DuplicateError{Field: c.field}
		}
	}
	return nil
}

func (s *MongoPersons) Get(ctx context.Context, id primitive.ObjectID) (*models.Person, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoPersons) FindByCard(ctx context.Context, card string) (*models.Person, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"carnet": card},
		bson.M{"numeroTarjeta": card},
	}})
}

func (s *MongoPersons) findOne(ctx context.Context, filter bson.M) (*models.Person, error) {
	var p models.Person
	err := s.col.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoPersons) List(ctx context.Context) ([]models.Person, error) {
	opts := options.Find().SetSort(bson.D{{Key: "nombre", Value: 1}, {Key: "apellido", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	persons := []models.Person{}
	if err := cursor.All(ctx, &persons); err != nil {
		return nil, err
	}
	return persons, nil
}

func (s *MongoPersons) Update(ctx context.Context, id primitive.ObjectID, upd PersonUpdate) (*models.Person, error) {
	set := bson.M{}
	for k, v := range upd.Fields {
		set[k] = v
	}
	if len(upd.Imagen) > 0 {
		set["imagen"] = upd.Imagen
		set["imagenMimeType"] = upd.ImagenMimeType
	}
	if upd.ImagenURL != "" {
		set["imagenUrl"] = upd.ImagenURL
		set["imagenMimeType"] = upd.ImagenMimeType
	}
	if len(set) == 0 {
		return s.Get(ctx, id)
	}
	changed := &models.Person{Carnet: upd.Fields["carnet"], NumeroTarjeta: upd.Fields["numeroTarjeta"]}
	if err := s.checkCards(ctx, id, cards(changed)); err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var p models.Person
	err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, translateWriteError(err)
	}
	return &p, nil
}

func (s *MongoPersons) Delete(ctx context.Context, id primitive.ObjectID) (*models.Person, error) {
	var p models.Person
	err := s.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoPersons) Exists(ctx context.Context, field, value string) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{field: value}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *MongoPersons) Search(ctx context.Context, q ListQuery) ([]models.Person, int64, error) {
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

	persons := []models.Person{}
	if err := cursor.All(ctx, &persons); err != nil {
		return nil, 0, err
	}
	return persons, total, nil
}

func (s *MongoPersons) DeleteExpiredVisitors(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.col.DeleteMany(ctx, bson.M{
		"rolUniversidad":  models.RoleVisitante,
		"fechaExpiracion": bson.M{"$lt": now},
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// buildFilter turns typed conditions into a bson filter. Substring values
// are quoted so user input never acts as a pattern.
func buildFilter(conds []Condition) bson.M {
	filter := bson.M{}
	for _, c := range conds {
		switch c.Match {
		case MatchExact:
			filter[c.Field] = c.Value
		case MatchSubstring:
			filter[c.Field] = bson.M{"$regex": regexp.QuoteMeta(c.Value), "$options": "i"}
		case MatchPresent:
			filter[c.Field] = bson.M{"$exists": true, "$nin": bson.A{"", nil}}
		case MatchAbsent:
			filter[c.Field] = bson.M{"$in": bson.A{"", nil}}
		}
	}
	return filter
}

func findOptions(q ListQuery) *options.FindOptions {
	sort := bson.D{}
	for _, k := range q.Sort {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: k.Field, Value: dir})
	}
	opts := options.Find().SetSort(sort).SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	return opts
}

func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return &DuplicateError{Field: duplicateField(err)}
	}
	return err
}

// duplicateField maps the violated index back to the field it guards.
func duplicateField(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if f := indexField(e.Message); f != "" {
				return f
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if f := indexField(ce.Message); f != "" {
			return f
		}
	}
	return "registro"
}

var indexFields = []struct {
	index string
	field string
}{
	{"uniq_carnet", "carnet"},
	{"uniq_numero_tarjeta", "numeroTarjeta"},
	{"uniq_sesion_abierta", "sesion"},
}

func indexField(msg string) string {
	for _, f := range indexFields {
		if strings.Contains(msg, f.index) {
			return f.field
		}
	}
	return ""
}
