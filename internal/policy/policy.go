// Package policy holds the authorization matrix for ticket mutations.
// Decisions are pure functions of the actor and the ticket; callers run
// them strictly before touching the store.
package policy

import (
	"github.com/spec-kit/campus-helpdesk/internal/domain"
)

// Actor is the verified identity attached to a request.
type Actor struct {
	UserID     string
	Role       domain.Role
	Department domain.Department
}

// ownsTicket reports whether the actor is the registered submitter.
// Guest tickets are owned by nobody; they are reachable only through
// their tracking code.
func ownsTicket(actor Actor, ticket *domain.Ticket) bool {
	return ticket.StudentID != nil && *ticket.StudentID == actor.UserID
}

// CanView decides read access to a single ticket.
func CanView(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return ownsTicket(actor, ticket)
	case domain.RoleDepartment:
		return actor.Department == ticket.Department
	case domain.RoleAdmin:
		return true
	}
	return false
}

// CanSetStatus decides who may move a ticket between workflow states.
// Students never set status, not even on their own tickets.
func CanSetStatus(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return false
	case domain.RoleDepartment:
		return actor.Department == ticket.Department
	case domain.RoleAdmin:
		return true
	}
	return false
}

// CanSetPriority decides who may change triage priority.
func CanSetPriority(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return false
	case domain.RoleDepartment:
		return actor.Department == ticket.Department
	case domain.RoleAdmin:
		return true
	}
	return false
}

// CanReassign decides who may move a ticket to another department.
func CanReassign(actor Actor) bool {
	switch actor.Role {
	case domain.RoleStudent, domain.RoleDepartment:
		return false
	case domain.RoleAdmin:
		return true
	}
	return false
}

// CanComment decides who may append to the ticket thread.
func CanComment(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return ownsTicket(actor, ticket)
	case domain.RoleDepartment:
		return actor.Department == ticket.Department
	case domain.RoleAdmin:
		return true
	}
	return false
}

// CanDelete decides who may hard-delete a ticket. Department staff
// never delete, not even in their own department.
func CanDelete(actor Actor, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.RoleStudent:
		return ownsTicket(actor, ticket)
	case domain.RoleDepartment:
		return false
	case domain.RoleAdmin:
		return true
	}
	return false
}

// ListScope describes the silent filter applied to list queries. Unlike
// the single-ticket checks above, out-of-scope rows simply drop out of
// list results instead of producing a denial.
type ListScope struct {
	StudentID  *string
	Department *domain.Department
}

// ScopeFor returns the list filter for the actor. Admins list
// everything.
func ScopeFor(actor Actor) ListScope {
	switch actor.Role {
	case domain.RoleStudent:
		id := actor.UserID
		return ListScope{StudentID: &id}
	case domain.RoleDepartment:
		dept := actor.Department
		return ListScope{Department: &dept}
	}
	return ListScope{}
}
