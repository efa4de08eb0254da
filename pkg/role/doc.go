// Package role defines the account role hierarchy for simple-useradmin.
//
// Roles are ordinal: User < SpaceAdmin < OrgAdmin < SuperAdmin. The two service-account roles
// are a separate category; assigning either one requires OrgAdmin authority.
//
// Everything here is pure. Functions answer yes/no questions and never return errors; the
// account service turns a "no" into a PermissionDenied failure.
//
// # Basic Usage
//
//	if !role.CanAssign(actor.Role, params.Role) {
//		return errors.PermissionDenied("role exceeds actor authority")
//	}
//
//	sel := role.Selection(actor.Role, account.Role)
//	if !sel.Editable {
//		// render the role read-only
//	}
package role
