package models

// Role is the closed set of portal roles.
type Role string

const (
	RoleOwner              Role = "owner"
	RoleAdmin              Role = "admin"
	RoleClientServices     Role = "client_services"
	RoleSpecialtySkills    Role = "specialty_skills"
	RolePartnerAdmin       Role = "partner_admin"
	RolePartnerContributor Role = "partner_contributor"
	RolePartnerViewer      Role = "partner_viewer"
	RoleClientEditor       Role = "client_editor"
	RoleClientViewer       Role = "client_viewer"
)

// AllRoles lists every role in display order.
var AllRoles = []Role{
	RoleOwner,
	RoleAdmin,
	RoleClientServices,
	RoleSpecialtySkills,
	RolePartnerAdmin,
	RolePartnerContributor,
	RolePartnerViewer,
	RoleClientEditor,
	RoleClientViewer,
}

// Capability names an action a role may perform.
type Capability string

const (
	CapManageCompanies Capability = "companies:manage"
	CapManageUsers     Capability = "users:manage"
	CapReviewAccess    Capability = "access_requests:review"
	CapScopeAll        Capability = "scope:all_companies"
	CapWriteProjects   Capability = "projects:write"
	CapWriteAudits     Capability = "audits:write"
	CapReadActivity    Capability = "activity:read"
	CapWriteAssets     Capability = "assets:write"
	CapReadAnalytics   Capability = "analytics:read"
)

var allCapabilities = []Capability{
	CapManageCompanies,
	CapManageUsers,
	CapReviewAccess,
	CapScopeAll,
	CapWriteProjects,
	CapWriteAudits,
	CapReadActivity,
	CapWriteAssets,
	CapReadAnalytics,
}

// roleCapabilities is the single source of truth for what each role may do.
var roleCapabilities = map[Role][]Capability{
	RoleOwner: allCapabilities,
	RoleAdmin: allCapabilities,
	RoleClientServices: {
		CapWriteProjects, CapWriteAudits, CapReadAnalytics, CapWriteAssets,
	},
	RoleSpecialtySkills: {
		CapWriteProjects, CapWriteAudits, CapReadAnalytics, CapWriteAssets,
	},
	RolePartnerAdmin: {
		CapWriteProjects, CapWriteAudits, CapReadAnalytics,
	},
	RolePartnerContributor: {
		CapWriteProjects, CapWriteAudits, CapReadAnalytics,
	},
	RolePartnerViewer: {
		CapReadAnalytics,
	},
	RoleClientEditor: {
		CapWriteProjects, CapReadAnalytics, CapWriteAssets,
	},
	RoleClientViewer: {
		CapReadAnalytics,
	},
}

// IsValidRole checks if a given role is valid
func IsValidRole(role Role) bool {
	_, ok := roleCapabilities[role]
	return ok
}

// Can reports whether the role holds the capability.
func (r Role) Can(c Capability) bool {
	for _, have := range roleCapabilities[r] {
		if have == c {
			return true
		}
	}
	return false
}

// Capabilities returns a copy of the role's capabilities.
func (r Role) Capabilities() []Capability {
	caps := roleCapabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// IsAgencyAdmin is true for the roles that see every company.
func (r Role) IsAgencyAdmin() bool {
	return r.Can(CapScopeAll)
}

// InRoles reports whether r is one of the allowed roles.
func (r Role) InRoles(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// SelfServiceRoles may be chosen at public registration.
var SelfServiceRoles = []Role{RoleClientEditor, RoleClientViewer}
