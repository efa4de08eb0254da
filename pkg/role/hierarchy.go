package role

// unranked marks roles that take no part in the ordering.
const unranked = -1

// IsServiceAccount reports whether r belongs to the machine account category.
func IsServiceAccount(r Role) bool {
	return r == ServiceAccountReadOnly || r == ServiceAccountReadWrite
}

// targetRank is the authority required to assign r.
// Service-account roles require OrgAdmin.
func targetRank(r Role) int {
	switch r {
	case User, SpaceAdmin, OrgAdmin, SuperAdmin:
		return int(r)
	case ServiceAccountReadOnly, ServiceAccountReadWrite:
		return int(OrgAdmin)
	default:
		return unranked
	}
}

// actorRank is the authority r carries when it performs an operation.
// A read-write service account administers like an OrgAdmin, a read-only one like a User.
func actorRank(r Role) int {
	switch r {
	case User, SpaceAdmin, OrgAdmin, SuperAdmin:
		return int(r)
	case ServiceAccountReadWrite:
		return int(OrgAdmin)
	case ServiceAccountReadOnly:
		return int(User)
	default:
		return unranked
	}
}

// CanAssign reports whether an actor holding actor may give target to an account.
// Unknown roles on either side are never permitted.
func CanAssign(actor, target Role) bool {
	a, t := actorRank(actor), targetRank(target)
	if a == unranked || t == unranked {
		return false
	}
	return a >= t
}

// CanAdminister reports whether actor may manage other accounts at all.
func CanAdminister(actor Role) bool {
	a := actorRank(actor)
	return a != unranked && a >= int(SpaceAdmin)
}

// VisibleRoleChoices returns, in display order, the roles actor may assign.
func VisibleRoleChoices(actor Role) []Role {
	choices := make([]Role, 0, len(All))
	for _, r := range All {
		if CanAssign(actor, r) {
			choices = append(choices, r)
		}
	}
	return choices
}

// RoleSelection describes the role picker for one account as seen by one actor.
type RoleSelection struct {
	Choices  []Role
	Editable bool
}

// Selection computes the role picker for an account currently holding current.
// When current exceeds the actor's authority the role is shown but cannot be changed.
func Selection(actor, current Role) RoleSelection {
	if !CanAssign(actor, current) {
		return RoleSelection{Choices: []Role{current}, Editable: false}
	}
	return RoleSelection{Choices: VisibleRoleChoices(actor), Editable: true}
}
