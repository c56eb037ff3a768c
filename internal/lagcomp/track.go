package lagcomp

// Track is the fixed-capacity history of one actor. Records are addressed by
// logical age (0 is the newest) so the physical wraparound of the ring is never
// visible to readers.
type Track struct {
	records []Record
	head    int
	count   int
}

// NewTrack allocates a track holding at most capacity records.
func NewTrack(capacity int) Track {
	if capacity < 1 {
		capacity = 1
	}
	return Track{records: make([]Record, capacity)}
}

// Cap reports the maximum number of records the track retains.
func (t *Track) Cap() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Len reports the number of records currently reachable.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return t.count
}

// Push appends a copy of rec, overwriting the oldest record when full.
func (t *Track) Push(rec *Record) {
	if rec == nil {
		return
	}
	slot := t.claim()
	if slot == nil {
		return
	}
	*slot = *rec
}

// claim advances the ring and returns the slot the newest record occupies.
func (t *Track) claim() *Record {
	if t == nil || len(t.records) == 0 {
		return nil
	}
	slot := &t.records[t.head]
	t.head = (t.head + 1) % len(t.records)
	if t.count < len(t.records) {
		t.count++
	}
	return slot
}

// At returns the record of the given age. The pointer stays valid until the
// next Push or Clear.
func (t *Track) At(age int) (*Record, bool) {
	if t == nil || age < 0 || age >= t.count {
		return nil, false
	}
	idx := t.head - 1 - age
	if idx < 0 {
		idx += len(t.records)
	}
	return &t.records[idx], true
}

// Newest returns the most recently pushed record.
func (t *Track) Newest() (*Record, bool) {
	return t.At(0)
}

// Oldest returns the oldest reachable record.
func (t *Track) Oldest() (*Record, bool) {
	return t.At(t.Len() - 1)
}

// Clear drops every record without releasing the backing storage.
func (t *Track) Clear() {
	if t == nil {
		return
	}
	t.head = 0
	t.count = 0
}

// Records returns a copy of the reachable records ordered oldest to newest.
func (t *Track) Records() []Record {
	if t == nil || t.count == 0 {
		return nil
	}
	out := make([]Record, t.count)
	for i := 0; i < t.count; i++ {
		rec, _ := t.At(t.count - 1 - i)
		out[i] = *rec
	}
	return out
}

// Reset replaces the contents with records ordered oldest to newest. When more
// records are supplied than the track holds only the newest are kept.
func (t *Track) Reset(records []Record) {
	if t == nil {
		return
	}
	t.Clear()
	if len(records) > len(t.records) {
		records = records[len(records)-len(t.records):]
	}
	for i := range records {
		t.Push(&records[i])
	}
}
