package passport

// Snapshot is the full persisted state of a record. It is produced and consumed
// by the host's storage layer only and bypasses the access gate, so it must never
// be handed to a caller.
type Snapshot struct {
	Surname   string
	GivenName string
	Birthday  uint64
	Metadata  []byte
	Active    bool
	Owner     AccountID
	// Assets is nil when the record was built without asset tracking.
	Assets map[AccountID]uint32
}

// Snapshot captures the record's current state.
func (r *Record) Snapshot() Snapshot {
	s := Snapshot{
		Surname:   r.surname,
		GivenName: r.givenName,
		Birthday:  r.birthday,
		Metadata:  cloneBytes(r.metadata),
		Active:    r.active,
		Owner:     r.owner,
	}
	if r.assets != nil {
		s.Assets = make(map[AccountID]uint32, len(r.assets))
		for k, v := range r.assets {
			s.Assets[k] = v
		}
	}
	return s
}

// Restore rebuilds a record from persisted state without re-running
// construction, so the owner and active flag come back exactly as stored.
func Restore(s Snapshot) *Record {
	r := &Record{
		surname:   s.Surname,
		givenName: s.GivenName,
		birthday:  s.Birthday,
		metadata:  cloneBytes(s.Metadata),
		active:    s.Active,
		owner:     s.Owner,
	}
	if s.Assets != nil {
		r.assets = make(map[AccountID]uint32, len(s.Assets))
		for k, v := range s.Assets {
			r.assets[k] = v
		}
	}
	return r
}
