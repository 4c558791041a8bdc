package services

// Principal identifies the caller of a task or catalog operation.
type Principal struct {
	UserID int64
	Admin  bool
}

// CanAccess reports whether the principal may read or mutate a resource
// owned by ownerID.
func (p Principal) CanAccess(ownerID int64) bool {
	return p.Admin || p.UserID == ownerID
}
