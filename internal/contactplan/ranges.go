package contactplan

import "cgrengine/internal/domain"

// AddRange inserts a one-way light-time interval. Ranges between the same
// (from, to) pair must not overlap in time (spec.md §4.2); overlap is
// checked against the immediately adjacent entries in the range index,
// which is sufficient since ranges for a pair are never allowed to
// overlap with each other once inserted.
func (s *Store) AddRange(r domain.Range) (domain.RangeHandle, AddResult, error) {
	if r.ToTime <= r.FromTime {
		return 0, 0, errBadArgument("range toTime must be after fromTime")
	}
	key := keyOf(r.From, r.To, r.FromTime)
	if h, ok := s.rangeIndex.Search(key); ok {
		slot := &s.ranges[idxOf(h)]
		slot.r.ToTime = r.ToTime
		slot.r.OWLT = r.OWLT
		s.bumpEditTime()
		return h, Revised, nil
	}
	if prevKey, prevH, ok := s.rangeIndex.Prev(key); ok {
		if prevKey.From == r.From && prevKey.To == r.To {
			prev := s.ranges[idxOf(prevH)].r
			if prev.ToTime > r.FromTime {
				return 0, 0, errOverlap("overlapping range for node pair")
			}
		}
	}
	if nextKey, _, ok := s.rangeIndex.Next(key); ok {
		if nextKey.From == r.From && nextKey.To == r.To && nextKey.FromTime < r.ToTime {
			return 0, 0, errOverlap("overlapping range for node pair")
		}
	}

	var h domain.RangeHandle
	if n := len(s.freeRanges); n > 0 {
		h = s.freeRanges[n-1]
		s.freeRanges = s.freeRanges[:n-1]
		s.ranges[idxOf(h)] = rangeSlot{r: r, alive: true}
	} else {
		s.ranges = append(s.ranges, rangeSlot{r: r, alive: true})
		h = domain.RangeHandle(handleOf(len(s.ranges) - 1))
	}
	if err := s.rangeIndex.Insert(key, h); err != nil {
		return 0, 0, err
	}
	s.bumpEditTime()
	return h, Added, nil
}

// RemoveRange deletes a range.
func (s *Store) RemoveRange(h domain.RangeHandle) error {
	i := idxOf(h)
	if i < 0 || i >= len(s.ranges) || !s.ranges[i].alive {
		return errNotFound("range not found")
	}
	r := s.ranges[i].r
	s.rangeIndex.Delete(keyOf(r.From, r.To, r.FromTime))
	s.ranges[i] = rangeSlot{}
	s.freeRanges = append(s.freeRanges, h)
	s.bumpEditTime()
	return nil
}

// GetApplicableRange returns the one-way light time between from and to
// at targetTime: the range whose [fromTime, toTime) interval contains
// targetTime, or an absent indicator if none does. The candidate is the
// most recent range starting at or before targetTime, but it is only
// returned while targetTime still falls inside its window — a lapsed
// range does not extrapolate forward.
func (s *Store) GetApplicableRange(from, to domain.NodeID, targetTime domain.Time) (domain.Time, bool) {
	key := keyOf(from, to, targetTime)
	candidateKey, h, ok := s.rangeIndex.Prev(addEpsilon(key))
	if !ok {
		if h2, ok2 := s.rangeIndex.Search(key); ok2 {
			candidateKey, h, ok = key, h2, true
		}
	}
	if !ok || candidateKey.From != from || candidateKey.To != to {
		return 0, false
	}
	rng := s.ranges[idxOf(h)].r
	if targetTime >= rng.ToTime {
		return 0, false
	}
	return rng.OWLT, true
}

// addEpsilon nudges a key's time component forward by one so Prev can be
// used to find "the last range starting at or before targetTime" via a
// strict less-than search.
func addEpsilon(k contactKey) contactKey {
	k.FromTime++
	return k
}
