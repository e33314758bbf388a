// Package pipeline sequences extensible before/after hooks around the five
// canonical resource operations: create, retrieve, update, destroy, and list.
//
// Each runner models a strict linear state machine
//
//	Start → Before → Perform → After → Done
//
// where any failure raised in Before, Perform, or a safe-lookup step exits
// the pipeline immediately: After never runs if Perform fails, and nothing is
// recovered locally; errors propagate unmodified to the caller so the
// top-level boundary classifies them once.
//
// The Perform step is delegated to an external persistence collaborator
// (Store). Domain-specific business rules plug in through the hook interfaces;
// embed the Nop* types to override only the hooks you need.
//
// The one permitted translation below the top-level boundary lives here:
// SafeLookup converts the storage layer's low-level record-missing signal
// into an object_missing failure at the exact point of the fetch, so a
// missing resource always yields 404 rather than an unclassified 500.
package pipeline

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-blog-backend/internal/apperr"
)

// Store is the persistence collaborator invoked by the Perform step.
//
// Save persists the entity, applying extra hook-computed fields (e.g. a
// derived owner or slug) before the write; it is used by both create and
// update. Delete removes the entity. Either may fail with storage failure
// kinds, which the pipeline surfaces unmodified.
type Store[T any] interface {
	Save(ctx context.Context, entity *T, extra map[string]any) (*T, error)
	Delete(ctx context.Context, entity *T) error
}

// CreateHooks brackets the create operation. Fields supplies extra
// operation-scoped values passed to Store.Save alongside the entity's
// validated fields.
type CreateHooks[T any] interface {
	BeforeCreate(ctx context.Context, entity *T) error
	CreateFields(ctx context.Context, entity *T) (map[string]any, error)
	AfterCreate(ctx context.Context, entity *T) error
}

// UpdateHooks brackets the update operation (save with existing identity).
type UpdateHooks[T any] interface {
	BeforeUpdate(ctx context.Context, entity *T) error
	UpdateFields(ctx context.Context, entity *T) (map[string]any, error)
	AfterUpdate(ctx context.Context, entity *T) error
}

// DestroyHooks brackets the destroy operation. BeforeDestroy may veto the
// deletion; AfterDestroy runs only on successful deletion.
type DestroyHooks[T any] interface {
	BeforeDestroy(ctx context.Context, entity *T) error
	AfterDestroy(ctx context.Context, entity *T) error
}

// ListHooks brackets the list operation around the external filter step:
// BeforeList runs before filtering/pagination, AfterList after it but before
// serialization, so hook ordering wraps the external filter.
type ListHooks[Q any] interface {
	BeforeList(ctx context.Context, query Q) (Q, error)
	AfterList(ctx context.Context, query Q) (Q, error)
}

// RetrieveHooks brackets a read-only retrieve; there is no Perform step.
type RetrieveHooks[T any] interface {
	BeforeRetrieve(ctx context.Context, entity *T) error
	AfterRetrieve(ctx context.Context, entity *T) error
}

// No-op hook defaults. Embed these so a hook set only overrides what it needs.

type NopCreateHooks[T any] struct{}

func (NopCreateHooks[T]) BeforeCreate(context.Context, *T) error { return nil }
func (NopCreateHooks[T]) CreateFields(context.Context, *T) (map[string]any, error) {
	return nil, nil
}
func (NopCreateHooks[T]) AfterCreate(context.Context, *T) error { return nil }

type NopUpdateHooks[T any] struct{}

func (NopUpdateHooks[T]) BeforeUpdate(context.Context, *T) error { return nil }
func (NopUpdateHooks[T]) UpdateFields(context.Context, *T) (map[string]any, error) {
	return nil, nil
}
func (NopUpdateHooks[T]) AfterUpdate(context.Context, *T) error { return nil }

type NopDestroyHooks[T any] struct{}

func (NopDestroyHooks[T]) BeforeDestroy(context.Context, *T) error { return nil }
func (NopDestroyHooks[T]) AfterDestroy(context.Context, *T) error  { return nil }

type NopListHooks[Q any] struct{}

func (NopListHooks[Q]) BeforeList(_ context.Context, q Q) (Q, error) { return q, nil }
func (NopListHooks[Q]) AfterList(_ context.Context, q Q) (Q, error)  { return q, nil }

type NopRetrieveHooks[T any] struct{}

func (NopRetrieveHooks[T]) BeforeRetrieve(context.Context, *T) error { return nil }
func (NopRetrieveHooks[T]) AfterRetrieve(context.Context, *T) error  { return nil }

// Create runs the create pipeline: BeforeCreate → CreateFields → Store.Save →
// AfterCreate. It returns the persisted entity.
func Create[T any](ctx context.Context, h CreateHooks[T], store Store[T], entity *T) (*T, error) {
	if err := h.BeforeCreate(ctx, entity); err != nil {
		return nil, err
	}
	fields, err := h.CreateFields(ctx, entity)
	if err != nil {
		return nil, err
	}
	out, err := store.Save(ctx, entity, fields)
	if err != nil {
		return nil, err
	}
	if err := h.AfterCreate(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update runs the update pipeline with the same shape as Create, but the
// Perform step saves an entity that already has an identity.
func Update[T any](ctx context.Context, h UpdateHooks[T], store Store[T], entity *T) (*T, error) {
	if err := h.BeforeUpdate(ctx, entity); err != nil {
		return nil, err
	}
	fields, err := h.UpdateFields(ctx, entity)
	if err != nil {
		return nil, err
	}
	out, err := store.Save(ctx, entity, fields)
	if err != nil {
		return nil, err
	}
	if err := h.AfterUpdate(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Destroy runs the destroy pipeline: BeforeDestroy may veto, Store.Delete
// performs, AfterDestroy runs only when the deletion succeeded.
func Destroy[T any](ctx context.Context, h DestroyHooks[T], store Store[T], entity *T) error {
	if err := h.BeforeDestroy(ctx, entity); err != nil {
		return err
	}
	if err := store.Delete(ctx, entity); err != nil {
		return err
	}
	return h.AfterDestroy(ctx, entity)
}

// List runs the list pipeline. The filter argument is the external
// filtering/pagination collaborator; BeforeList and AfterList wrap it. A
// record-missing signal raised while resolving the query is translated to a
// not-found failure, the same guarantee SafeLookup gives single fetches.
func List[Q any](ctx context.Context, h ListHooks[Q], filter func(context.Context, Q) (Q, error), query Q) (Q, error) {
	var zero Q
	query, err := h.BeforeList(ctx, query)
	if err != nil {
		return zero, err
	}
	query, err = filter(ctx, query)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return zero, apperr.NotFound("")
		}
		return zero, err
	}
	return h.AfterList(ctx, query)
}

// Retrieve runs the read-only retrieve pipeline: the safe-lookup wrapper
// fetches the subject, then BeforeRetrieve and AfterRetrieve bracket it
// before the result is serialized by the caller.
func Retrieve[T any](ctx context.Context, h RetrieveHooks[T], lookup func(context.Context) (*T, error)) (*T, error) {
	entity, err := SafeLookup(lookup)(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.BeforeRetrieve(ctx, entity); err != nil {
		return nil, err
	}
	if err := h.AfterRetrieve(ctx, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

// SafeLookup wraps a single-object fetch, re-raising the storage layer's
// record-missing signal as an object_missing failure at this exact point.
// This is the single place below the top-level boundary permitted to
// translate (not swallow) an error. All other errors pass through unchanged.
func SafeLookup[T any](fn func(context.Context) (*T, error)) func(context.Context) (*T, error) {
	return func(ctx context.Context) (*T, error) {
		entity, err := fn(ctx)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.ObjectMissing("")
			}
			return nil, err
		}
		return entity, nil
	}
}
