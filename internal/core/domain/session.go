package domain

// Snapshot is a point-in-time copy of a session's state.
type Snapshot struct {
	Principal *Principal `json:"principal"`
	Profile   *Profile   `json:"profile"`
	Loading   bool       `json:"loading"`
}

// Authenticated reports whether the snapshot carries a principal.
func (s Snapshot) Authenticated() bool { return s.Principal != nil }
