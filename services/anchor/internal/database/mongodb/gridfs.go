package mongodb

import (
	"context"
	"errors"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/redbco/redb-docstore/pkg/anchor/adapter"
)

var errNoBucket = errors.New("mongodb: gridfs bucket not ready")

// GridFSBucketBinding is a MongoDB binding whose library is a GridFS
// bucket of the connected database.
type GridFSBucketBinding struct {
	*Binding

	bucketName string

	mu     sync.RWMutex
	bucket *mongo.GridFSBucket
}

// NewGridFSBucketBinding creates an unconnected GridFS bucket binding.
func NewGridFSBucketBinding(cfg adapter.Config, bucketName string) *GridFSBucketBinding {
	return &GridFSBucketBinding{
		Binding:    NewBinding(cfg),
		bucketName: bucketName,
	}
}

// TryConnect drops the previous bucket and connects the client.
func (g *GridFSBucketBinding) TryConnect(ctx context.Context, uri string, notifier adapter.Notifier) error {
	g.mu.Lock()
	g.bucket = nil
	g.mu.Unlock()

	return g.Binding.TryConnect(ctx, uri, notifier)
}

// AfterConnect opens the bucket on the connected database.
func (g *GridFSBucketBinding) AfterConnect(ctx context.Context) error {
	db, err := g.Database()
	if err != nil {
		return err
	}

	opts := options.GridFSBucket()
	if g.bucketName != "" {
		opts.SetName(g.bucketName)
	}

	g.mu.Lock()
	g.bucket = db.GridFSBucket(opts)
	g.mu.Unlock()
	return nil
}

// Library returns the *mongo.GridFSBucket.
func (g *GridFSBucketBinding) Library() (any, error) {
	bucket, err := g.Bucket()
	if err != nil {
		return nil, err
	}
	return bucket, nil
}

// Bucket returns the bucket of the current connection.
func (g *GridFSBucketBinding) Bucket() (*mongo.GridFSBucket, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.bucket == nil {
		return nil, errNoBucket
	}
	return g.bucket, nil
}

// Close drops the bucket and disconnects the client.
func (g *GridFSBucketBinding) Close(ctx context.Context) error {
	g.mu.Lock()
	g.bucket = nil
	g.mu.Unlock()

	return g.Binding.Close(ctx)
}

var _ adapter.Binding = (*GridFSBucketBinding)(nil)
