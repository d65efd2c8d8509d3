// Package list implements the generic scoped-list repository: one engine
// providing list CRUD, item CRUD and batch mutation identically across the
// template, user and project ownership scopes.
package list

import (
	"fmt"

	"shotlist/internal/docstore"
	"shotlist/internal/sanitize"
)

// Scope is the ownership context of a list. A list instance belongs to
// exactly one scope for its whole lifetime; moving data between scopes goes
// through CreateOrReset, never through mutation.
type Scope string

const (
	// ScopeTemplate is the shared master list a user or project list is
	// instantiated from.
	ScopeTemplate Scope = "template"
	// ScopeUser is a list owned by a single user.
	ScopeUser Scope = "user"
	// ScopeProject is a list owned by a single project.
	ScopeProject Scope = "project"
)

// Ref addresses one scoped list instance. OwnerID is required for the user
// and project scopes and must be empty for the template scope.
type Ref struct {
	Scope   Scope
	OwnerID string
}

// Template addresses the master list.
func Template() Ref { return Ref{Scope: ScopeTemplate} }

// User addresses the list owned by the given user.
func User(userID string) Ref { return Ref{Scope: ScopeUser, OwnerID: userID} }

// Project addresses the list owned by the given project.
func Project(projectID string) Ref { return Ref{Scope: ScopeProject, OwnerID: projectID} }

// String renders the ref for error contexts and logs.
func (r Ref) String() string {
	if r.OwnerID == "" {
		return string(r.Scope)
	}
	return fmt.Sprintf("%s/%s", r.Scope, r.OwnerID)
}

func (r Ref) validate() error {
	switch r.Scope {
	case ScopeTemplate:
		if r.OwnerID != "" {
			return fmt.Errorf("template scope takes no owner, got %q", r.OwnerID)
		}
	case ScopeUser, ScopeProject:
		if r.OwnerID == "" {
			return fmt.Errorf("%s scope requires an owner id", r.Scope)
		}
	default:
		return fmt.Errorf("unknown scope %q", r.Scope)
	}
	return nil
}

// BaseItem is the field set every list item shares. Domain item types embed
// it and add their own fields.
type BaseItem struct {
	ID          string `json:"id" validate:"required"`
	CategoryID  string `json:"categoryId" validate:"required"`
	Name        string `json:"itemName" validate:"required"`
	Description string `json:"itemDescription,omitempty"`
	Custom      bool   `json:"isCustom"`
	Checked     bool   `json:"isChecked"`
	Disabled    bool   `json:"isDisabled"`
}

// ItemID returns the item's identifier.
func (b *BaseItem) ItemID() string { return b.ID }

// SetItemID assigns the item's identifier, used when adding an item that
// arrived without one.
func (b *BaseItem) SetItemID(id string) { b.ID = id }

// ItemCategoryID returns the identifier of the category the item belongs to.
func (b *BaseItem) ItemCategoryID() string { return b.CategoryID }

// Sanitize normalizes the shared string fields in place. Embedding types
// override this to additionally sanitize their own fields.
func (b *BaseItem) Sanitize() {
	b.ID = sanitize.String(b.ID)
	b.CategoryID = sanitize.String(b.CategoryID)
	b.Name = sanitize.String(b.Name)
	b.Description = sanitize.String(b.Description)
}

// Item constrains a list's item type: a struct embedding BaseItem (or
// otherwise exposing identity, category and sanitization through a pointer
// receiver).
type Item[T any] interface {
	*T
	ItemID() string
	SetItemID(id string)
	ItemCategoryID() string
	Sanitize()
}

// Category groups items for display.
type Category struct {
	ID    string `json:"id" validate:"required"`
	Name  string `json:"categoryName" validate:"required"`
	Order int    `json:"displayOrder"`
}

func (c *Category) sanitize() {
	c.ID = sanitize.String(c.ID)
	c.Name = sanitize.String(c.Name)
}

// ListConfig carries a list's identity, ownership and denormalized counts.
// TotalItems and TotalCategories are recomputed from live data on every
// write; caller-supplied values are never trusted.
type ListConfig struct {
	ID              string             `json:"id" validate:"required"`
	Type            string             `json:"type" validate:"required"`
	Source          Scope              `json:"source" validate:"required,oneof=template user project"`
	Version         int                `json:"version"`
	CreatedBy       string             `json:"createdBy,omitempty"`
	UpdatedBy       string             `json:"updatedBy,omitempty"`
	CreatedAt       docstore.Timestamp `json:"createdAt"`
	UpdatedAt       docstore.Timestamp `json:"updatedAt"`
	TotalCategories int                `json:"totalCategories"`
	TotalItems      int                `json:"totalItems"`
}

// PendingUpdate records a queued offline mutation awaiting confirmation.
type PendingUpdate struct {
	ItemID    string             `json:"itemId"`
	Operation string             `json:"operation"`
	QueuedAt  docstore.Timestamp `json:"queuedAt"`
}

// List is one scoped domain collection: config, display categories, items
// and any queued offline updates.
type List[T any] struct {
	Config         ListConfig      `json:"config"`
	Categories     []Category      `json:"categories,omitempty" validate:"dive"`
	Items          []T             `json:"items" validate:"dive"`
	PendingUpdates []PendingUpdate `json:"pendingUpdates,omitempty"`
}

// Recount restores the count invariants: TotalItems equals the live item
// count, TotalCategories equals the number of distinct categories that have
// at least one item.
func Recount[T any, PT Item[T]](l *List[T]) {
	l.Config.TotalItems = len(l.Items)
	seen := make(map[string]struct{})
	for i := range l.Items {
		if cid := PT(&l.Items[i]).ItemCategoryID(); cid != "" {
			seen[cid] = struct{}{}
		}
	}
	l.Config.TotalCategories = len(seen)
}

// Sanitize normalizes every string field of the list in place.
func Sanitize[T any, PT Item[T]](l *List[T]) {
	l.Config.ID = sanitize.String(l.Config.ID)
	l.Config.Type = sanitize.String(l.Config.Type)
	l.Config.CreatedBy = sanitize.String(l.Config.CreatedBy)
	l.Config.UpdatedBy = sanitize.String(l.Config.UpdatedBy)
	for i := range l.Categories {
		(&l.Categories[i]).sanitize()
	}
	for i := range l.Items {
		PT(&l.Items[i]).Sanitize()
	}
}

// ItemPatch is one {id, ...fields} entry of a batch update. The id selects
// the target item; the remaining keys overlay its JSON representation.
type ItemPatch map[string]any

// TargetID returns the patch's target item id, or "" when malformed.
func (p ItemPatch) TargetID() string {
	id, _ := p["id"].(string)
	return id
}
