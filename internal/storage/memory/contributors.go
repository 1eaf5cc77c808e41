package memory

import "sort"

// ContributorSet records distinct contributor addresses. It is not safe
// for concurrent use; Canvas guards it.
type ContributorSet struct {
	ids map[string]struct{}
}

// NewContributorSet creates an empty set.
func NewContributorSet() *ContributorSet {
	return &ContributorSet{ids: make(map[string]struct{})}
}

// Add records id. Empty IDs are anonymous and ignored.
func (s *ContributorSet) Add(id string) {
	if id == "" {
		return
	}
	s.ids[id] = struct{}{}
}

// Items returns the contributors sorted.
func (s *ContributorSet) Items() []string {
	if len(s.ids) == 0 {
		return nil
	}
	items := make([]string, 0, len(s.ids))
	for id := range s.ids {
		items = append(items, id)
	}
	sort.Strings(items)
	return items
}

// Reset forgets every contributor.
func (s *ContributorSet) Reset() {
	s.ids = make(map[string]struct{})
}
