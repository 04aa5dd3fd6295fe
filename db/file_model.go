package db

import "time"

// FileModel is a persisted, publicly addressable copy of a file the
// assistant consumed or produced, keyed by the ephemeral handle that
// originated it. Saving the same handle twice updates the row in place.
type FileModel struct {
	ExternalHandle string `json:"externalHandle" bson:"_id"`
	StorageKey     string `json:"storageKey" bson:"storageKey"`
	PublicURL      string `json:"publicUrl" bson:"publicUrl"`
	FileName       string `json:"fileName" bson:"fileName"`
	ContentType    string `json:"contentType" bson:"contentType"`
	SizeBytes      int64  `json:"sizeBytes" bson:"sizeBytes"`
	ConversationID string `json:"conversationId" bson:"conversationId"`
	CreatedAt      int64  `json:"createdAt" bson:"createdAt"`
	LastAccessedAt int64  `json:"lastAccessedAt" bson:"lastAccessedAt"`
	UsageCount     int64  `json:"usageCount" bson:"usageCount"`
}

func (m FileModel) Id() string { return m.ExternalHandle }

func (m FileModel) CollectionName() string { return "files" }

// Touch records another reference to an already-persisted file.
func (m *FileModel) Touch() {
	m.UsageCount++
	m.LastAccessedAt = time.Now().Unix()
}
