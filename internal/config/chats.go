package config

import (
	"strings"

	"coapnotify/internal/fault"
)

// SetChat registers a recipient. A matching name gets the new id, otherwise a
// matching id gets the new name, otherwise the entry goes into the first free
// slot. A full table drops the entry and reports ChatDropped.
func (s *Store) SetChat(name, id string) (ChatChange, error) {
	if name == "" || id == "" {
		return ChatDropped, fault.New(fault.InvalidArgument, "config set-chat", "chat name and id must not be empty")
	}
	name, _ = truncate(name, ChatNameCap-1)
	id, _ = truncate(id, ChatIDCap-1)

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.findLocked(func(c *chatSlot) bool { return c.name.String() == name }); i >= 0 {
		// the id may already belong to another entry; keep ids unique
		if j := s.findLocked(func(c *chatSlot) bool { return c.id.String() == id }); j >= 0 && j != i {
			s.removeLocked(j)
			if j < i {
				i--
			}
		}
		s.chats[i].id.Set(id)
		return ChatIDUpdated, nil
	}
	if i := s.findLocked(func(c *chatSlot) bool { return c.id.String() == id }); i >= 0 {
		s.chats[i].name.Set(name)
		return ChatNameUpdated, nil
	}
	for i := range s.chats {
		if s.chats[i].free() {
			s.chats[i].name.Set(name)
			s.chats[i].id.Set(id)
			return ChatInserted, nil
		}
	}
	return ChatDropped, nil
}

// SetChatID registers a recipient known only by id.
func (s *Store) SetChatID(id string) (ChatChange, error) {
	if id == "" {
		return ChatDropped, fault.New(fault.InvalidArgument, "config set-chat", "chat id must not be empty")
	}
	id, _ = truncate(id, ChatIDCap-1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(func(c *chatSlot) bool { return c.id.String() == id }) >= 0 {
		return ChatNameUpdated, nil
	}
	for i := range s.chats {
		if s.chats[i].free() {
			s.chats[i].name.Clear()
			s.chats[i].id.Set(id)
			return ChatInserted, nil
		}
	}
	return ChatDropped, nil
}

// RemoveChat removes the first entry whose name or id equals nameOrID. Later
// entries move up so the table stays in insertion order.
func (s *Store) RemoveChat(nameOrID string) bool {
	if nameOrID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findLocked(func(c *chatSlot) bool {
		return c.id.String() == nameOrID || (!c.name.Empty() && c.name.String() == nameOrID)
	})
	if i < 0 {
		return false
	}
	s.removeLocked(i)
	return true
}

// ChatIDsJoined returns every registered id joined with commas.
func (s *Store) ChatIDsJoined() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, MaxChats)
	for i := range s.chats {
		if !s.chats[i].free() {
			ids = append(ids, s.chats[i].id.String())
		}
	}
	return strings.Join(ids, ",")
}

func (s *Store) LookupChatID(name string) (string, bool) {
	if name == "" {
		return "", false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.findLocked(func(c *chatSlot) bool { return c.name.String() == name })
	if i < 0 {
		return "", false
	}
	return s.chats[i].id.String(), true
}

func (s *Store) Chats() []ChatEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatsLocked()
}

func (s *Store) ChatCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for i := range s.chats {
		if !s.chats[i].free() {
			n++
		}
	}
	return n
}

func (s *Store) chatsLocked() []ChatEntry {
	out := make([]ChatEntry, 0, MaxChats)
	for i := range s.chats {
		if s.chats[i].free() {
			continue
		}
		out = append(out, ChatEntry{Name: s.chats[i].name.String(), ID: s.chats[i].id.String()})
	}
	return out
}

func (s *Store) findLocked(match func(*chatSlot) bool) int {
	for i := range s.chats {
		if s.chats[i].free() {
			continue
		}
		if match(&s.chats[i]) {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(i int) {
	copy(s.chats[i:], s.chats[i+1:])
	last := &s.chats[len(s.chats)-1]
	last.name = NewBounded(ChatNameCap)
	last.id = NewBounded(ChatIDCap)
}
