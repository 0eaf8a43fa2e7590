package engine

// SessionKey is the pack.Session.State key the engine keeps its state under.
const SessionKey = "Session"

// orderedSet is an insertion-ordered string set.
type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet(items ...string) *orderedSet {
	s := &orderedSet{index: map[string]struct{}{}}
	for _, item := range items {
		s.add(item)
	}
	return s
}

// add reports whether item was new.
func (s *orderedSet) add(item string) bool {
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

func (s *orderedSet) has(item string) bool {
	_, ok := s.index[item]
	return ok
}

func (s *orderedSet) remove(item string) bool {
	if _, ok := s.index[item]; !ok {
		return false
	}
	delete(s.index, item)
	for i, v := range s.items {
		if v == item {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *orderedSet) values() []string {
	return append([]string{}, s.items...)
}

func (s *orderedSet) len() int { return len(s.items) }

// missing returns the distinct entries of required not in s, in order.
func (s *orderedSet) missing(required []string) []string {
	seen := map[string]struct{}{}
	var delta []string
	for _, item := range required {
		if s.has(item) {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		delta = append(delta, item)
	}
	return delta
}

// sessionState is what the engine keeps per pack session.
//
// references and namespaces are what has been handed to the live context.
// pending holds namespaces queued for the next Submission.
type sessionState struct {
	live       LiveContext
	references *orderedSet
	namespaces *orderedSet
	pending    *orderedSet
	clock      *Clock
}

func newSessionState(live LiveContext) *sessionState {
	return &sessionState{
		live:       live,
		references: newOrderedSet(),
		namespaces: newOrderedSet(),
		pending:    newOrderedSet(),
		clock:      NewClock(),
	}
}
