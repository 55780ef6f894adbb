package dataset

// Loader walks a Dataset in order, batchSize samples at a time. The last
// chunk may be short. Rows handed out alias the dataset's storage.
type Loader struct {
	ds        Dataset
	batchSize int
	off       int
}

func NewLoader(ds Dataset, batchSize int) *Loader {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Loader{ds: ds, batchSize: batchSize}
}

// Next returns the next chunk, or false once the dataset is exhausted.
func (l *Loader) Next() (Samples, bool) {
	n := l.ds.Len()
	if l.off >= n {
		return Samples{}, false
	}
	end := l.off + l.batchSize
	if end > n {
		end = n
	}
	if mem, ok := l.ds.(*InMemory); ok {
		out := mem.Slice(l.off, end)
		l.off = end
		return out, true
	}
	out := Samples{X: make([][]float32, 0, end-l.off), Y: make([]int, 0, end-l.off)}
	for i := l.off; i < end; i++ {
		x, y := l.ds.Sample(i)
		out.X = append(out.X, x)
		out.Y = append(out.Y, y)
	}
	l.off = end
	return out, true
}

// Reset rewinds to the first chunk.
func (l *Loader) Reset() { l.off = 0 }

// NumBatches is ceil(len/batchSize).
func (l *Loader) NumBatches() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}
