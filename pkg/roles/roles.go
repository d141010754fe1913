package roles

const (
	SuperAdmin    = "super_admin"
	PlatformAdmin = "platform_admin"
	LibraryOwner  = "library_owner"
	LibraryStaff  = "library_staff"
	Student       = "student"
)

// IsPlatform reports whether role belongs to the platform operators rather than a tenant.
func IsPlatform(role string) bool {
	return role == SuperAdmin || role == PlatformAdmin
}

func IsTenantStaff(role string) bool {
	return role == LibraryOwner || role == LibraryStaff
}

func Valid(role string) bool {
	switch role {
	case SuperAdmin, PlatformAdmin, LibraryOwner, LibraryStaff, Student:
		return true
	}
	return false
}

// Actor is the authenticated caller a usecase acts for. TenantID is the
// tenant the request is scoped to, empty for platform users acting globally.
type Actor struct {
	UserID   string
	Role     string
	TenantID string
}

func (a Actor) IsPlatform() bool {
	return IsPlatform(a.Role)
}

func (a Actor) IsStaff() bool {
	return IsTenantStaff(a.Role)
}

func (a Actor) IsStudent() bool {
	return a.Role == Student
}

// CanAccessTenant reports whether the actor may read or change data of tenantID.
func (a Actor) CanAccessTenant(tenantID string) bool {
	if a.IsPlatform() {
		return true
	}
	return tenantID != "" && a.TenantID == tenantID
}
