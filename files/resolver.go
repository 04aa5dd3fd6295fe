package files

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/relaydesk/relay/assistant"
	"github.com/relaydesk/relay/db"
	"go.uber.org/zap"
)

// Ref is one ephemeral file reference extracted from a turn: the job-scoped
// handle plus the sandbox-style path the model used in text, when any.
type Ref struct {
	Handle      string
	SandboxPath string
}

// RecordStore persists file records keyed by external handle. Put must be
// an idempotent upsert.
type RecordStore interface {
	Get(ctx context.Context, handle string) (*db.FileModel, error)
	Put(ctx context.Context, record db.FileModel) error
}

// BlobStore uploads bytes under a namespaced key and returns the public
// URL. cloud.Azure satisfies it.
type BlobStore interface {
	UploadBuffer(ctx context.Context, bucket, path string, data []byte) (string, error)
}

// UsageSink receives best-effort storage-usage increments.
type UsageSink interface {
	Add(ctx context.Context, tenant string, sizeBytes int64)
}

// Resolver converts ephemeral, job-scoped file handles into persistent,
// publicly fetchable storage entries, deduplicated by handle.
type Resolver struct {
	backend assistant.Client
	store   BlobStore
	records RecordStore
	usage   UsageSink
	bucket  string
	tenant  string
}

func NewResolver(backend assistant.Client, store BlobStore, records RecordStore, usage UsageSink, bucket, tenant string) *Resolver {
	return &Resolver{
		backend: backend,
		store:   store,
		records: records,
		usage:   usage,
		bucket:  bucket,
		tenant:  tenant,
	}
}

// Resolve persists every distinct handle in refs and returns the persisted
// records plus a rewrite map from in-text reference to public URL. A single
// file's failure degrades that file to a fallback reference; it never
// aborts the rest.
func (r *Resolver) Resolve(ctx context.Context, conversationID string, refs []Ref) ([]db.FileModel, map[string]string) {
	unique := dedupe(refs)

	resolved := make([]db.FileModel, 0, len(unique))
	rewriteMap := make(map[string]string, len(unique))

	for _, ref := range unique {
		record, err := r.resolveOne(ctx, conversationID, ref)
		if err != nil {
			logger.Error("File resolution degraded to fallback reference",
				zap.String("handle", ref.Handle),
				zap.Error(err))
			if ref.SandboxPath != "" {
				rewriteMap[ref.SandboxPath] = FallbackPath(ref.Handle, ref.SandboxPath)
			}
			continue
		}

		resolved = append(resolved, *record)
		if ref.SandboxPath != "" {
			rewriteMap[ref.SandboxPath] = record.PublicURL
		}
	}

	return resolved, rewriteMap
}

// resolveOne is an idempotent upsert keyed on the external handle: a known
// handle only touches its usage counters, a new one is fetched, uploaded
// and inserted.
func (r *Resolver) resolveOne(ctx context.Context, conversationID string, ref Ref) (*db.FileModel, error) {
	existing, err := r.records.Get(ctx, ref.Handle)
	if err == nil && existing != nil && existing.PublicURL != "" {
		existing.Touch()
		if err := r.records.Put(ctx, *existing); err != nil {
			logger.Error("Failed to touch file record", zap.String("handle", ref.Handle), zap.Error(err))
		}
		return existing, nil
	}

	meta, err := r.backend.GetFileMetadata(ctx, ref.Handle)
	if err != nil {
		// Metadata is recoverable: the sandbox path still names the file.
		meta = assistant.FileMetadata{Handle: ref.Handle}
		logger.Info("Backend file metadata unavailable, deriving from reference",
			zap.String("handle", ref.Handle))
	}

	filename := displayName(meta.Filename, ref)
	contentType := ContentTypeFor(filename)

	data, err := r.backend.GetFileContent(ctx, ref.Handle)
	if err != nil {
		return nil, fmt.Errorf("fetch content: %w", err)
	}

	key := storageKey(conversationID, ref.Handle, filename)
	publicURL, err := r.store.UploadBuffer(ctx, r.bucket, key, data)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	now := time.Now().Unix()
	record := db.FileModel{
		ExternalHandle: ref.Handle,
		StorageKey:     key,
		PublicURL:      publicURL,
		FileName:       filename,
		ContentType:    contentType,
		SizeBytes:      int64(len(data)),
		ConversationID: conversationID,
		CreatedAt:      now,
		LastAccessedAt: now,
		UsageCount:     1,
	}

	// Upsert on the handle: concurrent resolution of the same handle is
	// last-writer-wins on metadata, which is acceptable here.
	if err := r.records.Put(ctx, record); err != nil {
		return nil, fmt.Errorf("save record: %w", err)
	}

	if r.usage != nil {
		r.usage.Add(ctx, r.tenant, record.SizeBytes)
	}

	return &record, nil
}

// RewriteText replaces every literal in-text file reference with its
// resolved public URL. Unresolved references were already mapped to a
// stable fallback path, so no link dangles. Longer references are
// rewritten first so a reference that prefixes another is never mangled
// by the shorter replacement.
func RewriteText(text string, rewriteMap map[string]string) string {
	froms := make([]string, 0, len(rewriteMap))
	for from := range rewriteMap {
		froms = append(froms, from)
	}
	sort.Slice(froms, func(i, j int) bool { return len(froms[i]) > len(froms[j]) })

	for _, from := range froms {
		text = strings.ReplaceAll(text, from, rewriteMap[from])
	}
	return text
}

// FallbackPath is the stable path pattern used when a file could not be
// persisted.
func FallbackPath(handle, sandboxPath string) string {
	if base := path.Base(sandboxPath); base != "" && base != "." && base != "/" {
		return "/files/" + handle + "/" + base
	}
	return "/files/" + handle
}

// dedupe collapses refs by handle, never dropping a sandbox path observed
// on any duplicate.
func dedupe(refs []Ref) []Ref {
	byHandle := make(map[string]int)
	var out []Ref

	for _, ref := range refs {
		if ref.Handle == "" {
			continue
		}
		if idx, seen := byHandle[ref.Handle]; seen {
			if out[idx].SandboxPath == "" && ref.SandboxPath != "" {
				out[idx].SandboxPath = ref.SandboxPath
			}
			continue
		}
		byHandle[ref.Handle] = len(out)
		out = append(out, ref)
	}

	return out
}

func displayName(metaName string, ref Ref) string {
	if metaName != "" {
		return path.Base(metaName)
	}
	if ref.SandboxPath != "" {
		if base := path.Base(strings.TrimPrefix(ref.SandboxPath, "sandbox:")); base != "" && base != "." {
			return base
		}
	}
	return ref.Handle
}

func storageKey(conversationID, handle, filename string) string {
	return fmt.Sprintf("%s/%s_%s", conversationID, handle, filename)
}
