package list

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"shotlist/internal/docstore"
	"shotlist/internal/sanitize"
	"shotlist/internal/schema"
	"shotlist/internal/shared"
	"shotlist/pkg/result"
	"shotlist/pkg/retry"
)

// Config parametrizes a Repository for one list kind: its type tag and the
// key-path builders for the three ownership scopes.
type Config struct {
	// ListType discriminates the list kind, e.g. "tasks".
	ListType string
	// TemplatePath addresses the master list.
	TemplatePath func() docstore.KeyPath
	// UserPath addresses a user's list.
	UserPath func(userID string) docstore.KeyPath
	// ProjectPath addresses a project's list.
	ProjectPath func(projectID string) docstore.KeyPath
}

// Repository is the scoped-list engine. All mutation paths share the same
// pipeline: sanitize, validate, recompute counts, write. There is no
// in-process locking across calls; overlapping writers resolve to last write
// wins at the store.
type Repository[T any, PT Item[T]] struct {
	store    docstore.Store
	cfg      Config
	log      *slog.Logger
	retryCfg retry.Config
}

// NewRepository constructs the engine. A malformed Config is a programmer
// error and panics here; per-call failures are always returned as errors.
func NewRepository[T any, PT Item[T]](store docstore.Store, log *slog.Logger, cfg Config) *Repository[T, PT] {
	if store == nil {
		panic("list: nil store")
	}
	if cfg.ListType == "" {
		panic("list: empty ListType")
	}
	if cfg.TemplatePath == nil || cfg.UserPath == nil || cfg.ProjectPath == nil {
		panic("list: all three scope path builders are required")
	}
	if log == nil {
		log = slog.Default()
	}

	r := &Repository[T, PT]{
		store: store,
		cfg:   cfg,
		log:   log.With("component", "list.Repository", "list_type", cfg.ListType),
	}
	r.retryCfg = retry.DefaultConfig()
	r.retryCfg.RetryIf = func(err error) bool {
		return shared.FromStore(err, "").Retryable
	}
	r.retryCfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		r.log.Warn("retrying store read", "attempt", attempt, "error", err, "next_delay", nextDelay)
	}
	return r
}

// ListType returns the configured list kind tag.
func (r *Repository[T, PT]) ListType() string {
	return r.cfg.ListType
}

// Get fetches the list at ref. An absent master list is synthesized as an
// empty default; an absent user or project list is a not-found error, since
// those must be explicitly created before being read.
func (r *Repository[T, PT]) Get(ctx context.Context, ref Ref) (*List[T], *shared.Error) {
	opCtx := r.opContext("Get", ref)
	kp, aerr := r.path(ref, opCtx)
	if aerr != nil {
		return nil, aerr
	}

	raw, err := r.read(ctx, kp)
	if errors.Is(err, docstore.ErrNotExist) {
		if ref.Scope == ScopeTemplate {
			return r.defaultList(), nil
		}
		return nil, shared.EntityNotFound(opCtx)
	}
	if err != nil {
		return nil, shared.FromStore(err, opCtx)
	}
	return r.decode(raw, opCtx)
}

// Save sanitizes the list, restores the count invariants from live data and
// merge-writes it at ref.
func (r *Repository[T, PT]) Save(ctx context.Context, ref Ref, l *List[T]) *shared.Error {
	opCtx := r.opContext("Save", ref)
	kp, aerr := r.path(ref, opCtx)
	if aerr != nil {
		return aerr
	}

	Sanitize[T, PT](l)
	Recount[T, PT](l)
	l.Config.UpdatedAt = docstore.Now()

	if _, verr := schema.Validate(*l, opCtx); verr != nil {
		return verr
	}
	doc, err := encodeDocument(l)
	if err != nil {
		return shared.New(shared.CodeStoreOperationFailed,
			"encode list document: "+err.Error(), storeUserMessage, opCtx).WithCause(err)
	}
	if err := r.store.Write(ctx, kp, doc, true); err != nil {
		return shared.FromStore(err, opCtx)
	}
	return nil
}

// CreateOrReset instantiates (or wholesale overwrites) the list at ref from
// a source snapshot, typically the master template: ownership is
// re-attributed to ref and creation/update times are stamped fresh. The
// write replaces the stored document rather than merging.
func (r *Repository[T, PT]) CreateOrReset(ctx context.Context, ref Ref, source *List[T]) (*List[T], *shared.Error) {
	opCtx := r.opContext("CreateOrReset", ref)
	kp, aerr := r.path(ref, opCtx)
	if aerr != nil {
		return nil, aerr
	}

	fresh := *source
	fresh.Categories = append([]Category(nil), source.Categories...)
	fresh.Items = append([]T(nil), source.Items...)
	fresh.PendingUpdates = nil

	now := docstore.Now()
	fresh.Config.ID = uuid.NewString()
	fresh.Config.Type = r.cfg.ListType
	fresh.Config.Source = ref.Scope
	fresh.Config.CreatedBy = ref.OwnerID
	fresh.Config.UpdatedBy = ref.OwnerID
	fresh.Config.CreatedAt = now
	fresh.Config.UpdatedAt = now

	Sanitize[T, PT](&fresh)
	Recount[T, PT](&fresh)

	if _, verr := schema.Validate(fresh, opCtx); verr != nil {
		return nil, verr
	}
	doc, err := encodeDocument(&fresh)
	if err != nil {
		return nil, shared.New(shared.CodeStoreOperationFailed,
			"encode list document: "+err.Error(), storeUserMessage, opCtx).WithCause(err)
	}
	if err := r.store.Write(ctx, kp, doc, false); err != nil {
		return nil, shared.FromStore(err, opCtx)
	}
	return &fresh, nil
}

// AddItem appends a sanitized item to the list at ref. An item whose id is
// already present is rejected with a non-retryable validation error and the
// stored list is left untouched. An empty id is assigned a fresh one.
func (r *Repository[T, PT]) AddItem(ctx context.Context, ref Ref, item T) *shared.Error {
	opCtx := r.opContext("AddItem", ref)

	PT(&item).Sanitize()
	if PT(&item).ItemID() == "" {
		PT(&item).SetItemID(uuid.NewString())
	}
	if _, verr := schema.Validate(item, opCtx); verr != nil {
		return verr
	}

	l, aerr := r.Get(ctx, ref)
	if aerr != nil {
		return aerr
	}
	id := PT(&item).ItemID()
	for i := range l.Items {
		if PT(&l.Items[i]).ItemID() == id {
			return shared.New(shared.CodeValidationDupID,
				fmt.Sprintf("item %q already exists", id),
				"This item already exists in the list.",
				opCtx)
		}
	}
	l.Items = append(l.Items, item)
	return r.Save(ctx, ref, l)
}

// DeleteItem removes the item with the given id. A missing id is a no-op,
// not an error.
func (r *Repository[T, PT]) DeleteItem(ctx context.Context, ref Ref, itemID string) *shared.Error {
	l, aerr := r.Get(ctx, ref)
	if aerr != nil {
		return aerr
	}
	kept := l.Items[:0]
	for i := range l.Items {
		if PT(&l.Items[i]).ItemID() != itemID {
			kept = append(kept, l.Items[i])
		}
	}
	l.Items = kept
	return r.Save(ctx, ref, l)
}

// BatchUpdateItems applies each {id, ...fields} patch against the current
// list and issues a single write. Patches addressing unknown ids are
// silently dropped; there is no error path for a missing patch target. A
// patch producing an invalid item fails the whole batch before anything is
// written.
func (r *Repository[T, PT]) BatchUpdateItems(ctx context.Context, ref Ref, patches []ItemPatch) *shared.Error {
	opCtx := r.opContext("BatchUpdateItems", ref)

	l, aerr := r.Get(ctx, ref)
	if aerr != nil {
		return aerr
	}

	index := make(map[string]int, len(l.Items))
	for i := range l.Items {
		index[PT(&l.Items[i]).ItemID()] = i
	}

	touched := 0
	for _, patch := range patches {
		id := patch.TargetID()
		i, ok := index[id]
		if !ok {
			r.log.Debug("dropping patch for unknown item", "item_id", id, "ref", ref.String())
			continue
		}
		patched, err := applyPatch[T, PT](l.Items[i], patch)
		if err != nil {
			return shared.New(shared.CodeValidationFailed,
				fmt.Sprintf("patch for item %q does not fit the item shape: %v", id, err),
				"Some fields are invalid. Please review and try again.",
				opCtx).WithCause(err)
		}
		PT(&patched).Sanitize()
		if _, verr := schema.Validate(patched, opCtx); verr != nil {
			return verr
		}
		l.Items[i] = patched
		touched++
	}

	if touched == 0 && len(patches) > 0 {
		// Nothing matched; skip the write entirely.
		return nil
	}
	return r.Save(ctx, ref, l)
}

// BatchDeleteItems removes every listed id in one pass and issues a single
// write. Unknown ids are ignored.
func (r *Repository[T, PT]) BatchDeleteItems(ctx context.Context, ref Ref, itemIDs []string) *shared.Error {
	l, aerr := r.Get(ctx, ref)
	if aerr != nil {
		return aerr
	}
	drop := make(map[string]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		drop[id] = struct{}{}
	}
	kept := l.Items[:0]
	for i := range l.Items {
		if _, gone := drop[PT(&l.Items[i]).ItemID()]; !gone {
			kept = append(kept, l.Items[i])
		}
	}
	l.Items = kept
	return r.Save(ctx, ref, l)
}

// Subscribe registers a push listener for the list at ref. Every inbound
// snapshot is defensively parsed before delivery; an absent document is
// delivered as Ok(nil), distinguishing "not yet created" from a failed read.
// The caller must invoke the returned function on teardown.
func (r *Repository[T, PT]) Subscribe(ctx context.Context, ref Ref, fn func(result.Result[*List[T]])) (docstore.UnsubscribeFunc, *shared.Error) {
	opCtx := r.opContext("Subscribe", ref)
	kp, aerr := r.path(ref, opCtx)
	if aerr != nil {
		return nil, aerr
	}

	unsubscribe, err := r.store.Subscribe(ctx, kp,
		func(doc json.RawMessage) {
			if doc == nil {
				fn(result.Ok[*List[T]](nil))
				return
			}
			l, aerr := r.decode(doc, opCtx)
			if aerr != nil {
				fn(result.Err[*List[T]](aerr))
				return
			}
			fn(result.Ok(l))
		},
		func(err error) {
			fn(result.Err[*List[T]](shared.FromStore(err, opCtx)))
		})
	if err != nil {
		return nil, shared.FromStore(err, opCtx)
	}
	return unsubscribe, nil
}

// VerifyTemplate re-reads the master list and checks that its denormalized
// counts match the live data. Used by the maintenance sweep; a mismatch
// means some writer bypassed the repository.
func (r *Repository[T, PT]) VerifyTemplate(ctx context.Context) *shared.Error {
	opCtx := r.opContext("VerifyTemplate", Template())
	l, aerr := r.Get(ctx, Template())
	if aerr != nil {
		return aerr
	}
	check := List[T]{Config: l.Config, Items: l.Items}
	Recount[T, PT](&check)
	if check.Config.TotalItems != l.Config.TotalItems ||
		check.Config.TotalCategories != l.Config.TotalCategories {
		return shared.New(shared.CodeStoreDataIntegrity,
			fmt.Sprintf("stored counts (%d items, %d categories) diverge from live data (%d items, %d categories)",
				l.Config.TotalItems, l.Config.TotalCategories,
				check.Config.TotalItems, check.Config.TotalCategories),
			"Your data could not be loaded. Please contact support.",
			opCtx)
	}
	return nil
}

// read fetches the raw document, retrying transient store failures with
// bounded backoff. Writes are never retried.
func (r *Repository[T, PT]) read(ctx context.Context, kp docstore.KeyPath) (json.RawMessage, error) {
	return retry.DoValue(ctx, r.retryCfg, func(ctx context.Context) (json.RawMessage, error) {
		return r.store.Read(ctx, kp)
	})
}

// decode is the defensive parse applied to everything read back from the
// store: timestamp normalization, typed decode, schema validation and
// re-sanitization. Stored data is untrusted even though this system wrote
// it; it may be stale, hand-edited or written by an older client.
func (r *Repository[T, PT]) decode(raw json.RawMessage, opCtx string) (*List[T], *shared.Error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, shared.DataIntegrity(shared.New(shared.CodeValidationFailed,
			"document is not a JSON object: "+err.Error(), "", opCtx), opCtx)
	}
	docstore.NormalizeTimestamps(m)

	buf, err := json.Marshal(m)
	if err != nil {
		return nil, shared.DataIntegrity(shared.New(shared.CodeValidationFailed,
			"re-encode normalized document: "+err.Error(), "", opCtx), opCtx)
	}
	var l List[T]
	if err := json.Unmarshal(buf, &l); err != nil {
		return nil, shared.DataIntegrity(shared.New(shared.CodeValidationFailed,
			"document does not fit the list shape: "+err.Error(), "", opCtx), opCtx)
	}
	if _, verr := schema.Validate(l, opCtx); verr != nil {
		return nil, shared.DataIntegrity(verr, opCtx)
	}
	Sanitize[T, PT](&l)
	return &l, nil
}

// defaultList synthesizes the empty master list returned when no template
// document has been written yet.
func (r *Repository[T, PT]) defaultList() *List[T] {
	now := docstore.Now()
	return &List[T]{
		Config: ListConfig{
			ID:        uuid.NewString(),
			Type:      r.cfg.ListType,
			Source:    ScopeTemplate,
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Categories: []Category{},
		Items:      []T{},
	}
}

func (r *Repository[T, PT]) path(ref Ref, opCtx string) (docstore.KeyPath, *shared.Error) {
	if err := ref.validate(); err != nil {
		return nil, shared.New(shared.CodeValidationFailed,
			err.Error(), "Some fields are invalid. Please review and try again.", opCtx)
	}
	switch ref.Scope {
	case ScopeTemplate:
		return r.cfg.TemplatePath(), nil
	case ScopeUser:
		return r.cfg.UserPath(ref.OwnerID), nil
	default:
		return r.cfg.ProjectPath(ref.OwnerID), nil
	}
}

func (r *Repository[T, PT]) opContext(op string, ref Ref) string {
	return fmt.Sprintf("list.Repository.%s(%s/%s)", op, r.cfg.ListType, ref.String())
}

const storeUserMessage = "We couldn't reach the server. Please try again."

// encodeDocument marshals v and strips nil-valued keys so absent optional
// fields never reach the store as explicit nulls.
func encodeDocument(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	sanitize.StripNulls(m)
	return json.Marshal(m)
}

// applyPatch overlays a patch onto the item's JSON shape. The target's id
// is preserved; a patch cannot re-identify an item.
func applyPatch[T any, PT Item[T]](item T, patch ItemPatch) (T, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return item, err
	}
	id := PT(&item).ItemID()
	for k, v := range patch {
		m[k] = v
	}
	m["id"] = id

	buf, err := json.Marshal(m)
	if err != nil {
		return item, err
	}
	var out T
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return item, err
	}
	return out, nil
}
