// Package ancestry reconstructs ancestor chains over the self-referencing
// node hierarchy.
package ancestry

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"atatek/internal/tree/models"
	"atatek/pkg/platform/sentinel"
)

// MaxDepth bounds the iterative walk when the store has no chain query.
const MaxDepth = 256

// ParentReader is the minimal store capability the walk needs.
type ParentReader interface {
	FindByID(ctx context.Context, id int64) (*models.Node, error)
}

// ChainReader resolves the whole chain in a single query, root first.
// Stores that implement it skip the per-level walk.
type ChainReader interface {
	AncestorChain(ctx context.Context, id int64) ([]models.Ancestor, error)
}

// Resolver answers ancestor queries. Deleted ancestors are part of the chain;
// visibility only applies to the node being listed or searched.
type Resolver struct {
	parents ParentReader
	chains  ChainReader
}

// New builds a Resolver over store, using its chain query when available.
func New(store ParentReader) *Resolver {
	r := &Resolver{parents: store}
	if cr, ok := store.(ChainReader); ok {
		r.chains = cr
	}
	return r
}

// AncestorsOf returns the ancestors of id ordered root first, ending with the
// immediate parent. A null parent or a dangling parent reference terminates
// the chain. A node with no resolvable parent yields an empty chain.
func (r *Resolver) AncestorsOf(ctx context.Context, id int64) ([]models.Ancestor, error) {
	if r.chains != nil {
		chain, err := r.chains.AncestorChain(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolve ancestors of %d: %w", id, err)
		}
		if chain == nil {
			chain = []models.Ancestor{}
		}
		return chain, nil
	}
	return r.walk(ctx, id)
}

func (r *Resolver) walk(ctx context.Context, id int64) ([]models.Ancestor, error) {
	chain := []models.Ancestor{}
	start, err := r.parents.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return chain, nil
		}
		return nil, fmt.Errorf("resolve ancestors of %d: %w", id, err)
	}

	visited := map[int64]struct{}{start.ID: {}}
	next := start.ParentID
	for next != nil && len(chain) < MaxDepth {
		if _, seen := visited[*next]; seen {
			break
		}
		parent, err := r.parents.FindByID(ctx, *next)
		if errors.Is(err, sentinel.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("resolve ancestors of %d: %w", id, err)
		}
		visited[parent.ID] = struct{}{}
		chain = append(chain, models.Ancestor{ID: parent.ID, Name: parent.Name})
		next = parent.ParentID
	}
	slices.Reverse(chain)
	return chain, nil
}

// HasAncestor reports whether candidate appears in the ancestor chain of id.
func (r *Resolver) HasAncestor(ctx context.Context, id, candidate int64) (bool, error) {
	chain, err := r.AncestorsOf(ctx, id)
	if err != nil {
		return false, err
	}
	return Contains(chain, candidate), nil
}

// Contains reports whether id is a member of chain.
func Contains(chain []models.Ancestor, id int64) bool {
	return slices.ContainsFunc(chain, func(a models.Ancestor) bool { return a.ID == id })
}
