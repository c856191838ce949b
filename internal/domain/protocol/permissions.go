package protocol

// Action is an operation a member may perform in a room.
type Action string

const (
	ActionRead   Action = "read"
	ActionWrite  Action = "write"
	ActionInvoke Action = "invoke"
	ActionAdmin  Action = "admin"
)

// RoomPatternAny matches every room id in a permission set.
const RoomPatternAny = "*"

// Permissions grants a member a set of actions over a set of room patterns.
// Admin implies every other action.
type Permissions struct {
	AllowedRooms []string `json:"allowedRooms"`
	Actions      []Action `json:"actions"`
}

// NewAdminPermissions grants admin over all rooms.
func NewAdminPermissions() Permissions {
	return Permissions{
		AllowedRooms: []string{RoomPatternAny},
		Actions:      []Action{ActionAdmin},
	}
}

// Can reports whether the action is granted, directly or via Admin.
func (p Permissions) Can(action Action) bool {
	for _, a := range p.Actions {
		if a == ActionAdmin || a == action {
			return true
		}
	}
	return false
}

// CanAccessRoom reports whether any room pattern matches the room id.
// Patterns are either the wildcard "*" or an exact room id.
func (p Permissions) CanAccessRoom(roomID string) bool {
	for _, pattern := range p.AllowedRooms {
		if pattern == RoomPatternAny || pattern == roomID {
			return true
		}
	}
	return false
}
