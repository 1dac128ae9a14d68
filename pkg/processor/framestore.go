package processor

import (
	"math"
	"sort"

	"github.com/user/codectest/pkg/video"
)

// frameStore owns the input frames that may still be referenced by an
// outstanding encode or decode, keyed by sequence number.
type frameStore struct {
	frames map[int]*video.VideoFrame
}

func newFrameStore() *frameStore {
	return &frameStore{frames: make(map[int]*video.VideoFrame)}
}

func (s *frameStore) put(seq int, frame *video.VideoFrame) {
	if old, ok := s.frames[seq]; ok {
		old.Buffer.Release()
	}
	s.frames[seq] = frame
}

func (s *frameStore) get(seq int) (*video.VideoFrame, bool) {
	f, ok := s.frames[seq]
	return f, ok
}

// evictBefore drops every frame with a sequence number below seq and returns
// how many were dropped.
func (s *frameStore) evictBefore(seq int) int {
	n := 0
	for k, f := range s.frames {
		if k < seq {
			f.Buffer.Release()
			delete(s.frames, k)
			n++
		}
	}
	return n
}

func (s *frameStore) sequenceNumbers() []int {
	seqs := make([]int, 0, len(s.frames))
	for k := range s.frames {
		seqs = append(seqs, k)
	}
	sort.Ints(seqs)
	return seqs
}

func (s *frameStore) len() int {
	return len(s.frames)
}

func (s *frameStore) clear() {
	s.evictBefore(math.MaxInt)
}
