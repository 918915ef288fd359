package state

import (
	"fmt"
	"sync"

	"CanvasBoard/internal/logging"
)

// Store is the ordered element list of the active board. Array order is
// z-order: the last element is drawn on top. Every mutation goes through
// the store.
type Store struct {
	mu       sync.RWMutex
	elements []Element
}

// NewStore creates a store holding a copy of elements.
func NewStore(elements ...Element) (*Store, error) {
	s := &Store{}
	if err := s.Replace(elements); err != nil {
		return nil, err
	}
	return s, nil
}

// Len returns the number of elements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.elements)
}

// Elements returns a deep copy of the ordered element list.
func (s *Store) Elements() []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.elements)
}

// Get returns a copy of the element with the given id.
func (s *Store) Get(id string) (Element, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Element{}, false
	}
	return s.elements[i].Clone(), true
}

// Index returns the z-position of id, or -1.
func (s *Store) Index(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexLocked(id)
}

// Bounds returns the rendered bounds of the element with the given id.
func (s *Store) Bounds(id string) (Rect, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexLocked(id)
	if i < 0 {
		return Rect{}, false
	}
	return Bounds(s.elements[i], s.elements), true
}

// Add appends el on top of the stack.
func (s *Store) Add(el Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(len(s.elements), el)
}

// Insert places el at z-position index, clamped to the list.
func (s *Store) Insert(index int, el Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(index, el)
}

func (s *Store) insertLocked(index int, el Element) error {
	if err := el.Validate(); err != nil {
		return err
	}
	if s.indexLocked(el.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
	}
	if el.ParentID != "" {
		if err := s.checkParentLocked(el.ID, el.ParentID); err != nil {
			return err
		}
	}
	if index < 0 {
		index = 0
	}
	if index > len(s.elements) {
		index = len(s.elements)
	}
	s.elements = append(s.elements, Element{})
	copy(s.elements[index+1:], s.elements[index:])
	s.elements[index] = el.Clone()
	return nil
}

// Update applies fn to the stored element in place. fn must not call back
// into the store. The id and type cannot be changed; a changed ParentID is
// checked for cycles and the change is rolled back on error.
func (s *Store) Update(id string, fn func(*Element)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	before := s.elements[i].Clone()
	fn(&s.elements[i])
	after := &s.elements[i]
	after.ID, after.Type = before.ID, before.Type

	err := after.Validate()
	if err == nil && after.ParentID != before.ParentID && after.ParentID != "" {
		err = s.checkParentLocked(after.ID, after.ParentID)
	}
	if err != nil {
		s.elements[i] = before
		return err
	}
	return nil
}

// Remove deletes the elements with the given ids and returns how many were
// removed. Children of a removed group are promoted to the top level.
func (s *Store) Remove(ids ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := s.elements[:0]
	removed := 0
	for _, el := range s.elements {
		if drop[el.ID] {
			removed++
			continue
		}
		kept = append(kept, el)
	}
	for i := len(kept); i < len(s.elements); i++ {
		s.elements[i] = Element{}
	}
	s.elements = kept
	for i := range s.elements {
		if drop[s.elements[i].ParentID] {
			logging.Logger().Debug("promoting orphaned child", "element", s.elements[i].ID, "group", s.elements[i].ParentID)
			s.elements[i].ParentID = ""
		}
	}
	return removed
}

// Replace swaps in a copy of elements after checking ids and parent links.
func (s *Store) Replace(elements []Element) error {
	next := cloneAll(elements)
	if err := ValidateList(next); err != nil {
		return err
	}
	s.mu.Lock()
	s.elements = next
	s.mu.Unlock()
	return nil
}

// Children returns the ids of the direct children of groupID in z-order.
func (s *Store) Children(groupID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, el := range s.elements {
		if el.ParentID == groupID {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

// Descendants returns every element below groupID, depth first.
func (s *Store) Descendants(groupID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return descendants(s.elements, groupID)
}

func descendants(all []Element, groupID string) []string {
	var ids []string
	for _, el := range all {
		if el.ParentID == groupID {
			ids = append(ids, el.ID)
			if el.Type == TypeGroup {
				ids = append(ids, descendants(all, el.ID)...)
			}
		}
	}
	return ids
}

// Root returns the outermost group containing id, or id itself.
func (s *Store) Root(id string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for {
		i := s.indexLocked(id)
		if i < 0 || s.elements[i].ParentID == "" {
			return id
		}
		id = s.elements[i].ParentID
	}
}

// SetParent makes childID a member of groupID. An empty groupID detaches
// the child.
func (s *Store) SetParent(childID, groupID string) error {
	return s.Update(childID, func(el *Element) { el.ParentID = groupID })
}

// Group creates a group over ids and returns it. The group is inserted just
// above its topmost member and its fallback rectangle is the members' union.
func (s *Store) Group(name string, ids ...string) (Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(ids) == 0 {
		return Element{}, fmt.Errorf("%w: nothing to group", ErrNotFound)
	}
	var (
		members []Element
		top     = -1
	)
	for _, id := range ids {
		i := s.indexLocked(id)
		if i < 0 {
			return Element{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		members = append(members, s.elements[i])
		if i > top {
			top = i
		}
	}
	r, _ := UnionBounds(members, s.elements)
	group := NewGroup(name, r)
	group.ParentID = members[0].ParentID
	for _, m := range members[1:] {
		if m.ParentID != group.ParentID {
			group.ParentID = ""
			break
		}
	}
	if err := s.insertLocked(top+1, group); err != nil {
		return Element{}, err
	}
	for _, id := range ids {
		s.elements[s.indexLocked(id)].ParentID = group.ID
	}
	return group.Clone(), nil
}

// Ungroup removes groupID and promotes its direct children to the group's
// own parent.
func (s *Store) Ungroup(groupID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexLocked(groupID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, groupID)
	}
	if s.elements[i].Type != TypeGroup {
		return nil, fmt.Errorf("%w: %s is not a group", ErrInvalidElement, groupID)
	}
	parent := s.elements[i].ParentID
	var children []string
	for j := range s.elements {
		if s.elements[j].ParentID == groupID {
			s.elements[j].ParentID = parent
			children = append(children, s.elements[j].ID)
		}
	}
	s.elements = append(s.elements[:i], s.elements[i+1:]...)
	return children, nil
}

// BringToFront moves ids to the top of the stack, keeping their order.
func (s *Store) BringToFront(ids ...string) {
	s.reorder(ids, true)
}

// SendToBack moves ids to the bottom of the stack, keeping their order.
func (s *Store) SendToBack(ids ...string) {
	s.reorder(ids, false)
}

func (s *Store) reorder(ids []string, front bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	move := make(map[string]bool, len(ids))
	for _, id := range ids {
		move[id] = true
	}
	var moved, rest []Element
	for _, el := range s.elements {
		if move[el.ID] {
			moved = append(moved, el)
		} else {
			rest = append(rest, el)
		}
	}
	if front {
		s.elements = append(rest, moved...)
	} else {
		s.elements = append(moved, rest...)
	}
}

func (s *Store) indexLocked(id string) int {
	for i := range s.elements {
		if s.elements[i].ID == id {
			return i
		}
	}
	return -1
}

// checkParentLocked rejects making childID a member of groupID when groupID
// is not a group or already sits below childID.
func (s *Store) checkParentLocked(childID, groupID string) error {
	if childID == groupID {
		return fmt.Errorf("%w: %s", ErrGroupCycle, childID)
	}
	seen := map[string]bool{childID: true}
	for cur := groupID; cur != ""; {
		i := s.indexLocked(cur)
		if i < 0 {
			return fmt.Errorf("%w: parent %s", ErrNotFound, cur)
		}
		if cur == groupID && s.elements[i].Type != TypeGroup {
			return fmt.Errorf("%w: parent %s is a %s", ErrInvalidElement, cur, s.elements[i].Type)
		}
		if seen[cur] {
			return fmt.Errorf("%w: %s", ErrGroupCycle, childID)
		}
		seen[cur] = true
		cur = s.elements[i].ParentID
	}
	return nil
}

// ValidateList checks a whole element list: per-element invariants, unique
// ids, parents that exist and are groups, and acyclic parent chains.
// Dangling parent ids left by older boards are cleared rather than
// rejected.
func ValidateList(elements []Element) error {
	byID := make(map[string]int, len(elements))
	for i, el := range elements {
		if err := el.Validate(); err != nil {
			return err
		}
		if _, dup := byID[el.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, el.ID)
		}
		byID[el.ID] = i
	}
	for i := range elements {
		p := elements[i].ParentID
		if p == "" {
			continue
		}
		j, ok := byID[p]
		if !ok {
			elements[i].ParentID = ""
			continue
		}
		if elements[j].Type != TypeGroup {
			return fmt.Errorf("%w: parent %s is a %s", ErrInvalidElement, p, elements[j].Type)
		}
	}
	for _, el := range elements {
		seen := map[string]bool{el.ID: true}
		for cur := el.ParentID; cur != ""; cur = elements[byID[cur]].ParentID {
			if seen[cur] {
				return fmt.Errorf("%w: %s", ErrGroupCycle, el.ID)
			}
			seen[cur] = true
		}
	}
	return nil
}

func cloneAll(elements []Element) []Element {
	out := make([]Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}
