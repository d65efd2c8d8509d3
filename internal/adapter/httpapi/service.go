// Package httpapi exposes the scoped-list repositories over HTTP. It is a
// thin adapter: every semantic lives in the list engine, and every error
// returned to a client is the taxonomy's pre-composed user message.
package httpapi

import (
	"context"
	"encoding/json"

	"shotlist/internal/list"
	"shotlist/internal/shared"
)

// Service is the JSON-level face of one list kind, implemented generically
// over the typed repository so the router stays type-free.
type Service interface {
	Kind() string
	Get(ctx context.Context, ref list.Ref) (any, *shared.Error)
	Save(ctx context.Context, ref list.Ref, body []byte) *shared.Error
	ResetFromTemplate(ctx context.Context, ref list.Ref) (any, *shared.Error)
	AddItem(ctx context.Context, ref list.Ref, body []byte) *shared.Error
	DeleteItem(ctx context.Context, ref list.Ref, itemID string) *shared.Error
	BatchUpdate(ctx context.Context, ref list.Ref, patches []list.ItemPatch) *shared.Error
	BatchDelete(ctx context.Context, ref list.Ref, itemIDs []string) *shared.Error
}

// NewService adapts a typed repository to the JSON-level Service.
func NewService[T any, PT list.Item[T]](repo *list.Repository[T, PT]) Service {
	return &listService[T, PT]{repo: repo}
}

type listService[T any, PT list.Item[T]] struct {
	repo *list.Repository[T, PT]
}

func (s *listService[T, PT]) Kind() string {
	return s.repo.ListType()
}

func (s *listService[T, PT]) Get(ctx context.Context, ref list.Ref) (any, *shared.Error) {
	return s.repo.Get(ctx, ref)
}

func (s *listService[T, PT]) Save(ctx context.Context, ref list.Ref, body []byte) *shared.Error {
	var l list.List[T]
	if aerr := decodeBody(body, &l, "httpapi.Save"); aerr != nil {
		return aerr
	}
	return s.repo.Save(ctx, ref, &l)
}

func (s *listService[T, PT]) ResetFromTemplate(ctx context.Context, ref list.Ref) (any, *shared.Error) {
	tpl, aerr := s.repo.Get(ctx, list.Template())
	if aerr != nil {
		return nil, aerr
	}
	return s.repo.CreateOrReset(ctx, ref, tpl)
}

func (s *listService[T, PT]) AddItem(ctx context.Context, ref list.Ref, body []byte) *shared.Error {
	var item T
	if aerr := decodeBody(body, &item, "httpapi.AddItem"); aerr != nil {
		return aerr
	}
	return s.repo.AddItem(ctx, ref, item)
}

func (s *listService[T, PT]) DeleteItem(ctx context.Context, ref list.Ref, itemID string) *shared.Error {
	return s.repo.DeleteItem(ctx, ref, itemID)
}

func (s *listService[T, PT]) BatchUpdate(ctx context.Context, ref list.Ref, patches []list.ItemPatch) *shared.Error {
	return s.repo.BatchUpdateItems(ctx, ref, patches)
}

func (s *listService[T, PT]) BatchDelete(ctx context.Context, ref list.Ref, itemIDs []string) *shared.Error {
	return s.repo.BatchDeleteItems(ctx, ref, itemIDs)
}

func decodeBody(body []byte, dst any, opCtx string) *shared.Error {
	if err := json.Unmarshal(body, dst); err != nil {
		return shared.New(shared.CodeValidationFailed,
			"malformed request body: "+err.Error(),
			"The request could not be understood.",
			opCtx).WithCause(err)
	}
	return nil
}
