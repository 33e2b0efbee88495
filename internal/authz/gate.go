// Package authz contains the stateless authorization gate. All role and
// tenancy checks live here, in one decision table, so they can be tested
// independently of transport.
package authz

import (
	"smartcity/internal/models"
)

// Actor is the authenticated identity performing an operation.
type Actor struct {
	ID           string
	Role         models.Role
	Municipality string
}

// DenyReason explains why the gate refused an action.
type DenyReason string

const (
	// DenyNotOwner means the actor is not the owner of the target entity.
	DenyNotOwner DenyReason = "NOT_OWNER"
	// DenyWrongMunicipality means the admin's municipality does not match the target's.
	DenyWrongMunicipality DenyReason = "WRONG_MUNICIPALITY"
	// DenyWrongRole means the actor's role can never perform this action.
	DenyWrongRole DenyReason = "WRONG_ROLE"
)

// Decision is the gate's verdict. Denials are values, never errors.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Allowed: false, Reason: reason} }

// Err converts a denial into the FORBIDDEN application error. Allowed
// decisions return nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return models.NewForbiddenError("Access denied: " + string(d.Reason))
}

// CanManageRequest decides whether the actor may mutate a request's content
// or documents as its owner. Admin review rights are a separate rule.
func CanManageRequest(actor Actor, req *models.ServiceRequest) Decision {
	if actor.Role != models.RoleOwner {
		return deny(DenyWrongRole)
	}
	if actor.ID != req.OwnerID {
		return deny(DenyNotOwner)
	}
	return allow()
}

// CanReviewRequest decides whether the actor may perform admin actions
// (status, comments, location) on a request.
func CanReviewRequest(actor Actor, req *models.ServiceRequest) Decision {
	if actor.Role != models.RoleAdmin {
		return deny(DenyWrongRole)
	}
	if actor.Municipality != req.Municipality {
		return deny(DenyWrongMunicipality)
	}
	return allow()
}

// CanAccessDocuments decides whether the actor may download or remove a
// request's documents: the owner of the request or an admin of the same
// municipality. Citizens are never allowed.
func CanAccessDocuments(actor Actor, req *models.ServiceRequest) Decision {
	switch actor.Role {
	case models.RoleOwner:
		if actor.ID != req.OwnerID {
			return deny(DenyNotOwner)
		}
		return allow()
	case models.RoleAdmin:
		if actor.Municipality != req.Municipality {
			return deny(DenyWrongMunicipality)
		}
		return allow()
	default:
		return deny(DenyWrongRole)
	}
}

// CanUseConversation decides whether the actor may read or post in the
// conversation belonging to ownerID. Owners reach only their own thread;
// admins reach threads of owners in their municipality.
func CanUseConversation(actor Actor, ownerID, ownerMunicipality string) Decision {
	switch actor.Role {
	case models.RoleOwner:
		if actor.ID != ownerID {
			return deny(DenyNotOwner)
		}
		return allow()
	case models.RoleAdmin:
		if actor.Municipality != ownerMunicipality {
			return deny(DenyWrongMunicipality)
		}
		return allow()
	default:
		return deny(DenyWrongRole)
	}
}

// CanMarkNotificationRead decides whether the actor may mark a notification
// read. Only the owning user may; broadcasts have no owner and can never be
// marked read.
func CanMarkNotificationRead(actor Actor, n *models.Notification) Decision {
	if n.UserID == nil {
		return deny(DenyWrongRole)
	}
	if actor.ID != *n.UserID {
		return deny(DenyNotOwner)
	}
	return allow()
}

// CanSubmitRequest decides whether the actor may create a new business
// registration request.
func CanSubmitRequest(actor Actor) Decision {
	if actor.Role != models.RoleOwner {
		return deny(DenyWrongRole)
	}
	return allow()
}
