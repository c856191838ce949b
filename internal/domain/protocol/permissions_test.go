package protocol

import "testing"

func TestAdminImpliesAllActions(t *testing.T) {
	perms := NewAdminPermissions()

	for _, action := range []Action{ActionRead, ActionWrite, ActionInvoke, ActionAdmin} {
		if !perms.Can(action) {
			t.Errorf("admin permissions should allow %q", action)
		}
	}
	for _, room := range []string{"room_a", "room_b", ""} {
		if !perms.CanAccessRoom(room) {
			t.Errorf("wildcard permissions should allow room %q", room)
		}
	}
}

func TestPermissionsCan(t *testing.T) {
	perms := Permissions{
		AllowedRooms: []string{"room_general"},
		Actions:      []Action{ActionRead, ActionWrite},
	}

	tests := []struct {
		action Action
		want   bool
	}{
		{ActionRead, true},
		{ActionWrite, true},
		{ActionInvoke, false},
		{ActionAdmin, false},
	}

	for _, tt := range tests {
		if got := perms.Can(tt.action); got != tt.want {
			t.Errorf("Can(%q) = %v, want %v", tt.action, got, tt.want)
		}
	}
}

func TestPermissionsCanAccessRoom(t *testing.T) {
	perms := Permissions{
		AllowedRooms: []string{"room_general", "room_dev"},
		Actions:      []Action{ActionRead},
	}

	if !perms.CanAccessRoom("room_general") {
		t.Error("exact pattern should match")
	}
	if perms.CanAccessRoom("room_other") {
		t.Error("unlisted room should not match")
	}

	var empty Permissions
	if empty.CanAccessRoom("room_general") {
		t.Error("empty permissions should match nothing")
	}
	if empty.Can(ActionRead) {
		t.Error("empty permissions should allow nothing")
	}
}
