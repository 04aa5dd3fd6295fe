package db

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/odm"
	"github.com/SaiNageswarS/go-collection-boot/async"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// FileRepo is the Mongo-backed store for persisted-file records. Save is an
// upsert on the external handle, which makes concurrent resolution of the
// same handle an idempotent insert rather than a conflict.
type FileRepo struct {
	mongo  odm.MongoClient
	tenant string
}

func ProvideFileRepo(mongoClient odm.MongoClient, tenant string) *FileRepo {
	return &FileRepo{mongo: mongoClient, tenant: tenant}
}

func (r *FileRepo) collection() odm.OdmCollectionInterface[FileModel] {
	return odm.CollectionOf[FileModel](r.mongo, r.tenant)
}

// Get returns the record for a handle, or nil when none exists.
func (r *FileRepo) Get(ctx context.Context, handle string) (*FileModel, error) {
	return async.Await(r.collection().FindOneByID(ctx, handle))
}

func (r *FileRepo) Put(ctx context.Context, record FileModel) error {
	_, err := async.Await(r.collection().Save(ctx, record))
	return err
}

// ListByConversation returns every persisted file of one conversation.
func (r *FileRepo) ListByConversation(ctx context.Context, conversationID string) ([]FileModel, error) {
	return async.Await(r.collection().Find(ctx, bson.M{"conversationId": conversationID}, nil, 0, 0))
}
