package services

import "context"

// StaticIdentity resolves the submitter identity from agent
// configuration. An empty id means no authenticated session; pledges
// are then submitted anonymously.
type StaticIdentity struct {
	userID string
}

// NewStaticIdentity creates an identity provider for the configured
// user id.
func NewStaticIdentity(userID string) *StaticIdentity {
	return &StaticIdentity{userID: userID}
}

// CurrentUserID returns the configured user id, if any.
func (s *StaticIdentity) CurrentUserID(ctx context.Context) (string, bool) {
	if s == nil || s.userID == "" {
		return "", false
	}
	return s.userID, true
}
