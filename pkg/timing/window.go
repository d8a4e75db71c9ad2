package timing

// sampleWindow is a fixed-size circular buffer of frame latency samples with
// oldest-first eviction. Length never exceeds capacity.
type sampleWindow struct {
	samples  []float64
	head     int // Index of oldest element
	tail     int // Index where next element will be inserted
	size     int // Current number of elements
	capacity int // Maximum capacity
}

func newSampleWindow(capacity int) *sampleWindow {
	if capacity <= 0 {
		capacity = 60 // Default capacity
	}
	return &sampleWindow{
		samples:  make([]float64, capacity),
		capacity: capacity,
	}
}

// push inserts a sample, evicting the oldest if at capacity.
// Returns true if a sample was evicted to make room.
func (w *sampleWindow) push(latencyMs float64) bool {
	evicted := false

	w.samples[w.tail] = latencyMs
	w.tail = (w.tail + 1) % w.capacity

	if w.size < w.capacity {
		w.size++
	} else {
		// Window is full, advance head to evict oldest
		w.head = (w.head + 1) % w.capacity
		evicted = true
	}

	return evicted
}

func (w *sampleWindow) len() int { return w.size }

// mean returns the average latency over the window, or 0 when empty.
func (w *sampleWindow) mean() float64 {
	if w.size == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < w.size; i++ {
		idx := (w.head + i) % w.capacity
		sum += w.samples[idx]
	}
	return sum / float64(w.size)
}

// values returns the samples in order from oldest to newest.
func (w *sampleWindow) values() []float64 {
	result := make([]float64, 0, w.size)
	for i := 0; i < w.size; i++ {
		idx := (w.head + i) % w.capacity
		result = append(result, w.samples[idx])
	}
	return result
}

func (w *sampleWindow) clear() {
	w.head = 0
	w.tail = 0
	w.size = 0
}
