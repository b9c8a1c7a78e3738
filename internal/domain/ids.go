package domain

// OrgID is the chat workspace/team identifier that partitions all data.
// We model it as an opaque identifier: its format is controlled by the chat platform.
type OrgID string

// MemberName is a member's canonical name within an organization.
// Storage is case-sensitive; lookup through the alias registry is not.
type MemberName string
