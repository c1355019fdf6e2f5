package model

import "time"

// Credential is the opaque token bundle issued at login. The core never
// inspects Token beyond passing it through to the remote API.
type Credential struct {
	Username string    `json:"username"`
	Token    string    `json:"token,omitempty"`
	UserID   int       `json:"userId"`
	UserType int       `json:"userType"`
	Expires  time.Time `json:"expires,omitempty"`
}

// Checksum is one row of the dataIntegrityChecksums table: the server-supplied
// content version for a synced data domain, keyed by table name.
type Checksum struct {
	DataTable   string
	Checksum    string
	DateChanged time.Time
}
