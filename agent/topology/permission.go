package topology

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OTFiles/CosmoSynthAI/types"
)

// Permission is a single channel capability.
type Permission uint8

const (
	PermSend Permission = 1 << iota
	PermReceive
)

// Wire names of the two permissions. These strings appear in configuration
// files and in the pd.s command grammar.
const (
	SendName    = "send"
	ReceiveName = "receive"
)

func (p Permission) String() string {
	switch p {
	case PermSend:
		return SendName
	case PermReceive:
		return ReceiveName
	default:
		return fmt.Sprintf("permission(%d)", uint8(p))
	}
}

// ParsePermission maps a wire name to a Permission.
func ParsePermission(s string) (Permission, error) {
	switch s {
	case SendName:
		return PermSend, nil
	case ReceiveName:
		return PermReceive, nil
	default:
		return 0, types.Errorf(types.ErrInvalidPermission,
			"invalid permission %q, valid values are [%s %s]", s, ReceiveName, SendName)
	}
}

// PermissionSet is the set of permissions one agent holds on one channel.
type PermissionSet uint8

// NewPermissionSet builds a set from individual permissions.
func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		s |= PermissionSet(p)
	}
	return s
}

// ParsePermissions validates every name before building the set, so an
// invalid entry never yields a partial result.
func ParsePermissions(names []string) (PermissionSet, error) {
	var s PermissionSet
	for _, n := range names {
		p, err := ParsePermission(n)
		if err != nil {
			return 0, err
		}
		s |= PermissionSet(p)
	}
	return s, nil
}

// ParsePermissionsJSON parses a JSON array of permission names, as used by pd.s.
func ParsePermissionsJSON(raw string) (PermissionSet, error) {
	var names []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &names); err != nil {
		return 0, types.NewError(types.ErrInvalidPermission,
			"permissions must be a JSON array of strings").WithCause(err)
	}
	return ParsePermissions(names)
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	return s&PermissionSet(p) != 0
}

// CanSend reports whether the set grants send.
func (s PermissionSet) CanSend() bool { return s.Has(PermSend) }

// CanReceive reports whether the set grants receive.
func (s PermissionSet) CanReceive() bool { return s.Has(PermReceive) }

// Names returns the wire names in stable order (receive before send).
func (s PermissionSet) Names() []string {
	names := make([]string, 0, 2)
	if s.CanReceive() {
		names = append(names, ReceiveName)
	}
	if s.CanSend() {
		names = append(names, SendName)
	}
	return names
}

func (s PermissionSet) String() string {
	return "[" + strings.Join(s.Names(), ",") + "]"
}

// MarshalJSON encodes the set as an array of names.
func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Names())
}

// UnmarshalJSON decodes an array of names.
func (s *PermissionSet) UnmarshalJSON(data []byte) error {
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return err
	}
	parsed, err := ParsePermissions(names)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
