// Package access decides who may retrieve files.
//
// A user is authorized only when the membership oracle reports an allowed
// status in every required group. Lookups run concurrently and fail closed:
// an error from any group denies access.
package access

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// Status is a user's standing in a group as reported by the membership oracle.
type Status string

const (
	StatusOwner         Status = "owner"
	StatusAdministrator Status = "administrator"
	StatusMember        Status = "member"
	StatusRestricted    Status = "restricted"
	StatusLeft          Status = "left"
	StatusBanned        Status = "banned"
)

// Allowed reports whether s counts as present in the group.
func (s Status) Allowed() bool {
	switch s {
	case StatusOwner, StatusAdministrator, StatusMember:
		return true
	default:
		return false
	}
}

// MembershipChecker queries a single group's membership for a user.
type MembershipChecker interface {
	MemberStatus(ctx context.Context, groupID, userID int64) (Status, error)
}

// Gate decides whether a user may retrieve files.
// A user must hold an allowed status in every required group. Any lookup error
// counts as not a member.
type Gate struct {
	checker MembershipChecker
	groups  []int64
}

// NewGate creates a gate over the given required groups. The slice is copied.
func NewGate(checker MembershipChecker, requiredGroups []int64) *Gate {
	groups := make([]int64, len(requiredGroups))
	copy(groups, requiredGroups)
	return &Gate{checker: checker, groups: groups}
}

// RequiredGroups returns a copy of the configured group list.
func (g *Gate) RequiredGroups() []int64 {
	out := make([]int64, len(g.groups))
	copy(out, g.groups)
	return out
}

// IsAuthorized checks all required groups concurrently and returns true only
// if every check succeeded with an allowed status. The first denial cancels
// the remaining lookups.
func (g *Gate) IsAuthorized(ctx context.Context, userID int64) bool {
	if len(g.groups) == 0 {
		return true
	}

	eg, ctx := errgroup.WithContext(ctx)
	for _, groupID := range g.groups {
		groupID := groupID
		eg.Go(func() error {
			status, err := g.checker.MemberStatus(ctx, groupID, userID)
			if err != nil {
				return fmt.Errorf("membership check for group %d: %w", groupID, err)
			}
			if !status.Allowed() {
				return fmt.Errorf("not a member of group %d (status=%s)", groupID, status)
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		log.Printf("[Access] User %d denied: %v", userID, err)
		return false
	}
	return true
}
