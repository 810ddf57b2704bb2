package playlist

// Queue is the FIFO of tracks waiting to be played. It is owned by a single
// goroutine and is not safe for concurrent use.
type Queue struct {
	tracks []Track
}

// NewQueue creates an empty queue.
func NewQueue(tracks ...Track) *Queue {
	q := &Queue{tracks: make([]Track, 0, len(tracks))}
	q.Add(tracks...)
	return q
}

// Add appends tracks to the back of the queue.
func (q *Queue) Add(tracks ...Track) {
	q.tracks = append(q.tracks, tracks...)
}

// PopFront removes and returns the first track.
// Returns false if the queue is empty.
func (q *Queue) PopFront() (Track, bool) {
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	t := q.tracks[0]
	q.tracks[0] = Track{}
	q.tracks = q.tracks[1:]
	return t, true
}

// Peek returns the first track without removing it.
func (q *Queue) Peek() (Track, bool) {
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	return q.tracks[0], true
}

// Remove removes the track at the given index.
// Returns false if index is out of bounds.
func (q *Queue) Remove(index int) bool {
	if index < 0 || index >= len(q.tracks) {
		return false
	}
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	return true
}

// Move moves the track at fromIndex to toIndex.
// Returns false if either index is out of bounds.
func (q *Queue) Move(fromIndex, toIndex int) bool {
	if fromIndex < 0 || fromIndex >= len(q.tracks) {
		return false
	}
	if toIndex < 0 || toIndex >= len(q.tracks) {
		return false
	}
	if fromIndex == toIndex {
		return true
	}

	track := q.tracks[fromIndex]
	q.tracks = append(q.tracks[:fromIndex], q.tracks[fromIndex+1:]...)
	q.tracks = append(q.tracks[:toIndex], append([]Track{track}, q.tracks[toIndex:]...)...)
	return true
}

// Clear removes all tracks.
func (q *Queue) Clear() {
	q.tracks = nil
}

// Tracks returns a copy of all tracks in play order.
func (q *Queue) Tracks() []Track {
	result := make([]Track, len(q.tracks))
	copy(result, q.tracks)
	return result
}

// Len returns the number of tracks.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}
