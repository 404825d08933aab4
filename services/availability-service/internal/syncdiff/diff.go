// Package syncdiff computes the minimal merge request that turns a previously
// persisted snapshot into the desired one.
package syncdiff

// MergeRequest is the persistence instruction produced by Diff. Upsert holds
// records to create (no id) or overwrite (id set); DeleteIDs lists previous ids
// that are no longer wanted.
type MergeRequest[R any] struct {
	Upsert    []R     `json:"upsert"`
	DeleteIDs []int64 `json:"delete_ids"`
}

func (m MergeRequest[R]) Empty() bool {
	return len(m.Upsert) == 0 && len(m.DeleteIDs) == 0
}

// Codec tells Diff how to identify and compare records of type R. Canonical must
// erase every difference that is not semantic (ordering, whitespace, seconds).
type Codec[R, C any] struct {
	ID        func(R) (int64, bool)
	Canonical func(R) C
	Equal     func(a, b C) bool
}

// Diff compares next against prev. Records without an id are created; records
// whose id is known are upserted only when their canonical form changed;
// records whose id is unknown are upserted as-is. Every id of prev that next no
// longer mentions is deleted, in prev order and at most once.
func Diff[R, C any](prev, next []R, codec Codec[R, C]) MergeRequest[R] {
	before := make(map[int64]C, len(prev))
	for _, r := range prev {
		id, ok := codec.ID(r)
		if !ok {
			continue
		}
		if _, dup := before[id]; dup {
			continue
		}
		before[id] = codec.Canonical(r)
	}

	req := MergeRequest[R]{Upsert: []R{}, DeleteIDs: []int64{}}
	kept := make(map[int64]struct{}, len(next))
	for _, r := range next {
		id, ok := codec.ID(r)
		if !ok {
			req.Upsert = append(req.Upsert, r)
			continue
		}
		kept[id] = struct{}{}
		old, known := before[id]
		if known && codec.Equal(old, codec.Canonical(r)) {
			continue
		}
		req.Upsert = append(req.Upsert, r)
	}

	deleted := make(map[int64]struct{})
	for _, r := range prev {
		id, ok := codec.ID(r)
		if !ok {
			continue
		}
		if _, ok := kept[id]; ok {
			continue
		}
		if _, ok := deleted[id]; ok {
			continue
		}
		deleted[id] = struct{}{}
		req.DeleteIDs = append(req.DeleteIDs, id)
	}
	return req
}
