package quill

import "fmt"

// Prune runs the retention policy over every version as an explicit
// maintenance pass, returning the total number of snapshots deleted.
// Eviction also runs automatically after each CreateSnapshot; this
// pass covers versions written under an older, larger keep count.
func (s *Service) Prune() (int, error) {
	if err := s.requireLinear(); err != nil {
		return 0, err
	}

	versions, err := s.db.ListAllVersions()
	if err != nil {
		return 0, fmt.Errorf("listing versions: %w", err)
	}

	total := 0
	for _, v := range versions {
		evicted, err := s.db.EvictSnapshots(v.ID, s.keepCount)
		if err != nil {
			return total, fmt.Errorf("pruning version %s: %w", v.ID, err)
		}
		total += evicted
	}

	s.logger.Info("retention pass complete", "versions", len(versions), "evicted", total)
	return total, nil
}
