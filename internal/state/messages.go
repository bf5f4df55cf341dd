package state

import (
	"sync"

	"github.com/LimeProgramming/defectio"
)

// messageStore bounds the message cache per channel: once a channel exceeds
// the maximum, the oldest cached message is evicted first. Replacing an
// existing ID keeps its position and does not count against the bound.
type messageStore struct {
	mu       sync.RWMutex
	max      int
	channels map[string]*channelMessages
}

type channelMessages struct {
	order []string
	byID  map[string]defectio.Message
}

func newMessageStore(max int) *messageStore {
	return &messageStore{max: max, channels: make(map[string]*channelMessages)}
}

func (s *messageStore) get(channelID, messageID string) (defectio.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cm, ok := s.channels[channelID]
	if !ok {
		return defectio.Message{}, false
	}
	m, ok := cm.byID[messageID]
	return m, ok
}

func (s *messageStore) put(m defectio.Message) (defectio.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cm, ok := s.channels[m.ChannelID]
	if !ok {
		cm = &channelMessages{byID: make(map[string]defectio.Message)}
		s.channels[m.ChannelID] = cm
	}

	prev, existed := cm.byID[m.ID]
	cm.byID[m.ID] = m
	if existed {
		return prev, true
	}

	cm.order = append(cm.order, m.ID)
	if s.max > 0 && len(cm.order) > s.max {
		oldest := cm.order[0]
		cm.order = cm.order[1:]
		delete(cm.byID, oldest)
	}
	return defectio.Message{}, false
}

func (s *messageStore) delete(channelID, messageID string) (defectio.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cm, ok := s.channels[channelID]
	if !ok {
		return defectio.Message{}, false
	}
	prev, existed := cm.byID[messageID]
	if !existed {
		return defectio.Message{}, false
	}
	delete(cm.byID, messageID)
	for i, id := range cm.order {
		if id == messageID {
			cm.order = append(cm.order[:i], cm.order[i+1:]...)
			break
		}
	}
	return prev, true
}

func (s *messageStore) dropChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
}

func (s *messageStore) count(channelID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cm, ok := s.channels[channelID]
	if !ok {
		return 0
	}
	return len(cm.order)
}

func (s *messageStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels = make(map[string]*channelMessages)
}
