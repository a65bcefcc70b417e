package authz

import "testing"

func TestIsAllowed(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		want   bool
	}{
		{"admin creates course", RoleAdmin, ActionCreateCourse, true},
		{"teacher creates course", RoleTeacher, ActionCreateCourse, true},
		{"student creates course", RoleStudent, ActionCreateCourse, false},
		{"admin edits course", RoleAdmin, ActionEditCourse, true},
		{"teacher edits course", RoleTeacher, ActionEditCourse, true},
		{"student edits course", RoleStudent, ActionEditCourse, false},
		{"admin deletes course", RoleAdmin, ActionDeleteCourse, true},
		{"teacher deletes course", RoleTeacher, ActionDeleteCourse, false},
		{"student deletes course", RoleStudent, ActionDeleteCourse, false},
		{"admin confirms enrollment", RoleAdmin, ActionConfirmEnrollment, true},
		{"teacher confirms enrollment", RoleTeacher, ActionConfirmEnrollment, true},
		{"student confirms enrollment", RoleStudent, ActionConfirmEnrollment, false},
		{"admin views roster", RoleAdmin, ActionViewRoster, true},
		{"teacher views roster", RoleTeacher, ActionViewRoster, true},
		{"student views roster", RoleStudent, ActionViewRoster, false},
		{"unknown role", Role("Superuser"), ActionDeleteCourse, false},
		{"unknown action", RoleAdmin, Action("course:publish"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsAllowed(tc.role, tc.action); got != tc.want {
				t.Fatalf("IsAllowed(%q, %q) = %v, want %v", tc.role, tc.action, got, tc.want)
			}
		})
	}
}

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleAdmin, RoleTeacher, RoleStudent} {
		if !r.Valid() {
			t.Fatalf("expected %q to be valid", r)
		}
	}
	if Role("admin").Valid() {
		t.Fatal("role matching is case-sensitive; \"admin\" must be invalid")
	}
	if Role("").Valid() {
		t.Fatal("empty role must be invalid")
	}
}
