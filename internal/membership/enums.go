// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package membership

import "fmt"

// Status is the stored lifecycle state of an account.
type Status int

// Account statuses.
const (
	StatusDisabled   Status = 0
	StatusEnabled    Status = 100
	StatusUnverified Status = 200
	StatusLocked     Status = 300
	StatusDeleted    Status = 400
)

func (s Status) String() string {
	switch s {
	case StatusDisabled:
		return "disabled"
	case StatusEnabled:
		return "enabled"
	case StatusUnverified:
		return "unverified"
	case StatusLocked:
		return "locked"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDisabled, StatusEnabled, StatusUnverified, StatusLocked, StatusDeleted:
		return true
	}
	return false
}

// Source records where an account's credentials come from.
type Source int

// Account sources. Only SourceLocal accounts authenticate by password.
const (
	SourceUnknown  Source = 0
	SourceLocal    Source = 100
	SourceFacebook Source = 200
	SourceTwitter  Source = 300
	SourceGoogle   Source = 400
)

func (s Source) String() string {
	switch s {
	case SourceUnknown:
		return "unknown"
	case SourceLocal:
		return "local"
	case SourceFacebook:
		return "facebook"
	case SourceTwitter:
		return "twitter"
	case SourceGoogle:
		return "google"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	switch s {
	case SourceUnknown, SourceLocal, SourceFacebook, SourceTwitter, SourceGoogle:
		return true
	}
	return false
}

// AccountType is an opaque classification carried on accounts. The engine
// stores it but never makes decisions on it.
type AccountType int

// Account types.
const (
	TypeUnknown     AccountType = 0
	TypeSuperAdmin  AccountType = 100
	TypeAreaManager AccountType = 200
	TypeRegularUser AccountType = 300
)

func (t AccountType) String() string {
	switch t {
	case TypeUnknown:
		return "unknown"
	case TypeSuperAdmin:
		return "super_admin"
	case TypeAreaManager:
		return "area_manager"
	case TypeRegularUser:
		return "regular_user"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case TypeUnknown, TypeSuperAdmin, TypeAreaManager, TypeRegularUser:
		return true
	}
	return false
}
