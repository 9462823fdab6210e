package core

// Fanout pushes data to every member accepted by keep.
// A failed TrySend is recorded in Dropped and the loop moves on.
func Fanout(members []MemberSession, data Frame, keep func(MemberSession) bool) PublishResult {
	res := PublishResult{}
	for _, m := range members {
		if keep != nil && !keep(m) {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	return res
}
