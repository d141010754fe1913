package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoleClassification(t *testing.T) {
	tests := []struct {
		role     string
		platform bool
		staff    bool
		valid    bool
	}{
		{SuperAdmin, true, false, true},
		{PlatformAdmin, true, false, true},
		{LibraryOwner, false, true, true},
		{LibraryStaff, false, true, true},
		{Student, false, false, true},
		{"viewer", false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.platform, IsPlatform(tt.role))
			assert.Equal(t, tt.staff, IsTenantStaff(tt.role))
			assert.Equal(t, tt.valid, Valid(tt.role))
		})
	}
}

func TestActorCanAccessTenant(t *testing.T) {
	admin := Actor{UserID: "a", Role: PlatformAdmin}
	owner := Actor{UserID: "o", Role: LibraryOwner, TenantID: "t1"}
	orphan := Actor{UserID: "s", Role: Student}

	assert.True(t, admin.CanAccessTenant("t1"))
	assert.True(t, owner.CanAccessTenant("t1"))
	assert.False(t, owner.CanAccessTenant("t2"))
	assert.False(t, orphan.CanAccessTenant(""))
	assert.True(t, owner.IsStaff())
	assert.False(t, owner.IsStudent())
}
