package models

import (
	"errors"
	"strings"
	"time"
)

// Node is a person in the genealogy hierarchy.
//
// ExternalID correlates the node with the authoritative source and is unique
// when present. ParentID is nil only for roots. Soft-deleted nodes stay
// addressable by id and remain valid parents.
type Node struct {
	ID         int64
	ExternalID *int64
	Name       string
	BirthYear  *int
	DeathYear  *int
	Biography  *string
	MiniIcon   *string
	MainIcon   *string
	ParentID   *int64
	IsDeleted  bool
	CreatedBy  int64
	UpdatedBy  *int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasBiography reports whether the node carries a non-empty biography.
func (n *Node) HasBiography() bool {
	return n.Biography != nil && strings.TrimSpace(*n.Biography) != ""
}

// Visible reports whether the node appears in listings and search.
func (n *Node) Visible() bool {
	return !n.IsDeleted
}

var (
	errNameRequired   = errors.New("node name is required")
	errParentRequired = errors.New("synced node requires a parent")
	errExternalID     = errors.New("external id must be positive")
)

// NewSyncedNode builds a node reported by the external source. Zero years are
// the source's "unknown" marker and are stored as nil.
func NewSyncedNode(externalID int64, name string, birth, death *int, parentID, actorID int64, now time.Time) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errNameRequired
	}
	if parentID <= 0 {
		return nil, errParentRequired
	}
	if externalID <= 0 {
		return nil, errExternalID
	}
	ext := externalID
	parent := parentID
	return &Node{
		ExternalID: &ext,
		Name:       name,
		BirthYear:  KnownYear(birth),
		DeathYear:  KnownYear(death),
		ParentID:   &parent,
		IsDeleted:  false,
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// KnownYear maps the source's null/0 sentinel to nil.
func KnownYear(year *int) *int {
	if year == nil || *year == 0 {
		return nil
	}
	y := *year
	return &y
}

// Child is one entry of a children listing.
type Child struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Birth       *int    `json:"birth"`
	Death       *int    `json:"death"`
	Info        bool    `json:"info"`
	Untouchable bool    `json:"untouchable"`
	MiniIcon    *string `json:"mini_icon"`
	MainIcon    *string `json:"main_icon"`
}

// ChildFromNode projects a node into a listing entry.
func ChildFromNode(n *Node) Child {
	return Child{
		ID:       n.ID,
		Name:     n.Name,
		Birth:    n.BirthYear,
		Death:    n.DeathYear,
		Info:     n.HasBiography(),
		MiniIcon: nonEmpty(n.MiniIcon),
		MainIcon: nonEmpty(n.MainIcon),
	}
}

// UserRef identifies the creator or last editor of a node. All fields are nil
// when the user no longer exists.
type UserRef struct {
	ID        *int64  `json:"id"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// NodeDetail is the full view of a single node.
type NodeDetail struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	MiniIcon  *string `json:"mini_icon"`
	MainIcon  *string `json:"main_icon"`
	Birth     *int    `json:"birth"`
	Death     *int    `json:"death"`
	Bio       *string `json:"bio"`
	IsDeleted bool    `json:"is_deleted"`
	CreatedBy UserRef `json:"created_by"`
	UpdatedBy UserRef `json:"updated_by"`
}

// Ancestor is one link of an ancestor chain.
type Ancestor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// SearchResult is a name match with its lineage, root first.
type SearchResult struct {
	ID      int64      `json:"id"`
	Name    string     `json:"name"`
	Birth   *int       `json:"birth"`
	Death   *int       `json:"death"`
	Parents []Ancestor `json:"parents"`
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
