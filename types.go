package entstore

import "sort"

func (s *Store) writeType(typename, entity string) {
	set := s.types[typename]
	if set == nil {
		set = make(map[string]struct{})
		s.types[typename] = set
	}
	set[entity] = struct{}{}
}

func (s *Store) writeConcreteType(abstractType, concreteType string) {
	set := s.abstract[abstractType]
	if set == nil {
		set = make(map[string]struct{})
		s.abstract[abstractType] = set
	}
	set[concreteType] = struct{}{}
}

func setMembers(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
