package cache

import (
	"fmt"
	"strings"
)

// Namespaces address entries as <namespace>:<entity-kind>:<id>.
const (
	// NamespaceTreeChildren holds the visible children list of a node.
	NamespaceTreeChildren = "tree:node"
	// NamespaceUserProfile holds denormalized user profile views.
	NamespaceUserProfile = "user:meta"
	// NamespaceVerifyCode holds short-lived verification codes.
	NamespaceVerifyCode = "user:verify"
)

// Key builds the deterministic cache key for an entity.
func Key(namespace string, id int64) string {
	return fmt.Sprintf("%s:%d", namespace, id)
}

// TreeChildrenKey is the key of a node's children list.
func TreeChildrenKey(nodeID int64) string {
	return Key(NamespaceTreeChildren, nodeID)
}

// UserProfileKey is the key of a user's profile view.
func UserProfileKey(userID int64) string {
	return Key(NamespaceUserProfile, userID)
}

// VerifyCodeKey is the key of a user's pending verification code.
func VerifyCodeKey(userID int64) string {
	return Key(NamespaceVerifyCode, userID)
}

// namespaceOf strips the id segment; used as a metrics label.
func namespaceOf(key string) string {
	if idx := strings.LastIndex(key, ":"); idx > 0 {
		return key[:idx]
	}
	return key
}
