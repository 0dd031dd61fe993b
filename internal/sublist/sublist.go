package sublist

import (
	"sync"
	"time"
)

// Subscriber is one live observer of location updates.
type Subscriber interface {
	Push(sender string, d []byte) error
	Closed() bool
	Name() string
}

type subflag struct {
	sub Subscriber
	err error
}

// Sublist is the broadcast list. Send pushes to every subscriber,
// Prune compacts away the ones that errored or closed.
type Sublist struct {
	list       []subflag
	mu         sync.Mutex
	prune_dur  time.Duration
	last_prune time.Time
}

func NewSublist() *Sublist {
	s := &Sublist{}
	s.list = make([]subflag, 0, 20)
	s.prune_dur = 20 * time.Second
	s.last_prune = time.Now()
	return s
}

func (s *Sublist) Subscribe(sub Subscriber) {
	s.mu.Lock()
	s.list = append(s.list, subflag{sub: sub})
	s.mu.Unlock()
}

func (s *Sublist) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.list)
}

// Send broadcasts d to all subscribers. Push must not block, a slow
// subscriber drops instead of stalling the others.
func (s *Sublist) Send(sender string, d []byte) {
	s.mu.Lock()
	for i := range s.list {
		s.list[i].err = s.list[i].sub.Push(sender, d)
	}
	t0 := time.Now()
	if t0.Sub(s.last_prune) > s.prune_dur {
		s.prune()
		s.last_prune = t0
	}
	s.mu.Unlock()
}

func (s *Sublist) Prune() {
	s.mu.Lock()
	s.prune()
	s.mu.Unlock()
}

func (s *Sublist) prune() {
	olen := len(s.list)
	tail := olen - 1
look_bad:
	for i := 0; i < olen; i++ {
		if s.list[i].err != nil || s.list[i].sub.Closed() { //index i is bad
			//look for replacement from the tail
			for j := tail; j > i; j-- {
				if s.list[j].err == nil && !s.list[j].sub.Closed() {
					s.list[i] = s.list[j] //j is good index, replace i with j
					if i+1 == j {
						//i and j are adjacent, nothing more to iterate
						//i is last known good index, so trim to i+1
						s.list = s.list[:i+1]
						return
					}
					tail = j - 1
					continue look_bad
				}
			}
			//found no replacement, trim to i because i is last bad index
			s.list = s.list[:i]
			return
		} else if i == tail { //index i is not bad and happens to be tail
			s.list = s.list[:i+1]
			return
		}
	}
}
