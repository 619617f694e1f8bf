package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

// namespaceExistsCode is the server error code for an existing collection.
const namespaceExistsCode = 48

// Model binds a JSON schema to a collection of the binding's database.
// The collection is resolved on every call, so a model survives reconnects.
type Model struct {
	Name       string
	Collection string
	Validator  bson.D

	binding *Binding
}

// NewModel creates a model on binding. schema may be nil, a bson.D, a bson.M
// or a map[string]interface{} holding a $jsonSchema document.
func NewModel(binding *Binding, schema any, name string, collectionName string) (*Model, error) {
	if name == "" {
		return nil, &adapter.InvalidArgumentError{Argument: "collection", Reason: "collection name is required"}
	}

	validator, err := validatorFor(schema)
	if err != nil {
		return nil, err
	}

	collection := name
	if collectionName != "" {
		collection = collectionName
	}

	return &Model{
		Name:       name,
		Collection: collection,
		Validator:  validator,
		binding:    binding,
	}, nil
}

// Coll returns the collection handle of the current connection.
func (m *Model) Coll() (*mongo.Collection, error) {
	db, err := m.binding.Database()
	if err != nil {
		return nil, err
	}
	return db.Collection(m.Collection), nil
}

// Ensure creates the collection with its validator. An existing collection
// is left as is.
func (m *Model) Ensure(ctx context.Context) error {
	db, err := m.binding.Database()
	if err != nil {
		return err
	}

	opts := options.CreateCollection()
	if m.Validator != nil {
		opts.SetValidator(m.Validator)
	}

	if err := db.CreateCollection(ctx, m.Collection, opts); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == namespaceExistsCode {
			return nil
		}
		return fmt.Errorf("error creating collection %s: %w", m.Collection, err)
	}
	return nil
}

// validatorFor wraps schema into a $jsonSchema validator document.
func validatorFor(schema any) (bson.D, error) {
	switch s := schema.(type) {
	case nil:
		return nil, nil
	case bson.D:
		return bson.D{{Key: "$jsonSchema", Value: s}}, nil
	case bson.M:
		return bson.D{{Key: "$jsonSchema", Value: toBSONDoc(s)}}, nil
	case map[string]interface{}:
		return bson.D{{Key: "$jsonSchema", Value: toBSONDoc(s)}}, nil
	default:
		return nil, &adapter.InvalidArgumentError{
			Argument: "schema",
			Reason:   fmt.Sprintf("unsupported schema type %T", schema),
		}
	}
}

// toBSONDoc converts a map to a bson.D in key order.
func toBSONDoc(m map[string]interface{}) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: toBSONValue(m[k])})
	}
	return doc
}

func toBSONValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return toBSONDoc(val)
	case bson.M:
		return toBSONDoc(val)
	case []interface{}:
		result := make(bson.A, len(val))
		for i, item := range val {
			result[i] = toBSONValue(item)
		}
		return result
	default:
		return v
	}
}
