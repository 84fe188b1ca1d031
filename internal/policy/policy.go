// Package policy is the single authorization decision point. Every mutation
// handler builds a Resource describing its target and asks Decide for a
// verdict before touching a store; no handler carries its own ownership or
// role conditionals.
//
// Known quirk, preserved deliberately: comment edit and delete are allowed
// for ANY authenticated user, with no ownership or role check. Harden here if
// that ever changes.
package policy

import "github.com/adamwrona/galleria/database/models"

// Action enumerates every gated operation.
type Action int

const (
	GalleryCreate Action = iota
	GalleryUpdate
	GalleryDelete
	ImageCreate
	ImageUpdate
	ImageDelete
	CommentCreate
	CommentEdit
	CommentDelete
	UserList
	UserCreate
	UserDelete
)

// Resource describes the target of an action. Only the fields relevant to the
// action need to be set.
type Resource struct {
	// OwnerID is the effective owner: the gallery's owner for gallery
	// actions, the owning gallery's owner for image actions.
	OwnerID uint
	// TargetUserID identifies the user being acted on for user actions.
	TargetUserID uint
	// ImageCount is the gallery's image count, consulted by the
	// gallery-delete structural guard.
	ImageCount int64
}

// Verdict is the policy outcome. Every non-Allow verdict names the rule that
// denied, so handlers can render the matching message.
type Verdict int

const (
	Allow Verdict = iota
	DenyAnonymous
	DenyNotOwner
	DenyNotAdmin
	DenySelfDelete
	DenyGalleryNotEmpty
)

// Allowed reports whether the verdict permits the action.
func (v Verdict) Allowed() bool {
	return v == Allow
}

// Decide evaluates actor/action/resource. actor == nil means anonymous.
//
// Precedence: anonymous check, then the identity-independent structural
// guard, then the admin rule (with its self-delete exception), then the
// ownership rule.
func Decide(actor *models.User, action Action, res Resource) Verdict {
	if actor == nil {
		return DenyAnonymous
	}

	// Structural guard: a non-empty gallery is not deletable by anyone.
	if action == GalleryDelete && res.ImageCount > 0 {
		return DenyGalleryNotEmpty
	}

	if actor.IsAdmin() {
		if action == UserDelete && res.TargetUserID == actor.ID {
			return DenySelfDelete
		}
		return Allow
	}

	switch action {
	case GalleryCreate, CommentCreate, CommentEdit, CommentDelete:
		return Allow
	case GalleryUpdate, GalleryDelete, ImageCreate, ImageUpdate, ImageDelete:
		if res.OwnerID == actor.ID {
			return Allow
		}
		return DenyNotOwner
	case UserList, UserCreate, UserDelete:
		return DenyNotAdmin
	default:
		return DenyNotAdmin
	}
}
