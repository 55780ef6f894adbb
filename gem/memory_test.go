package gem

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"

	"continual-gem/dataset"
)

// countingDataset records how many samples were read.
type countingDataset struct {
	x     [][]float32
	y     []int
	reads int
}

func (d *countingDataset) Len() int { return len(d.y) }

func (d *countingDataset) Sample(i int) ([]float32, int) {
	d.reads++
	return d.x[i], d.y[i]
}

func rampData(n int) ([][]float32, []int) {
	x := make([][]float32, n)
	y := make([]int, n)
	for i := range x {
		x[i] = []float32{float32(i), float32(-i)}
		y[i] = i % 3
	}
	return x, y
}

func TestMemoryUpdate(t *testing.T) {
	Convey("Given a memory holding 3 patterns per experience", t, func() {
		mem, err := NewMemory(3)
		So(err, ShouldBeNil)

		Convey("When an experience of 5 samples arrives in chunks of 3 and 2", func() {
			x, y := rampData(5)
			ds := &countingDataset{x: x, y: y}
			So(mem.Update(ds, 0, 3), ShouldBeNil)

			Convey("It should keep exactly the first 3 samples", func() {
				got, ok := mem.Get(0)
				So(ok, ShouldBeTrue)
				So(got.Len(), ShouldEqual, 3)
				So(got.Y, ShouldResemble, []int{0, 1, 2})
				So(got.X[2], ShouldResemble, []float32{2, -2})
			})

			Convey("It should stop after the first chunk", func() {
				So(ds.reads, ShouldEqual, 3)
			})
		})

		Convey("When a chunk straddles the capacity", func() {
			x, y := rampData(7)
			ds, _ := dataset.NewInMemory(x, y)
			So(mem.Update(ds, 0, 2), ShouldBeNil)

			Convey("It should take the part of the chunk that fits", func() {
				got, _ := mem.Get(0)
				So(got.Y, ShouldResemble, []int{0, 1, 2})
			})
		})

		Convey("When an experience is smaller than the capacity", func() {
			x, y := rampData(2)
			ds, _ := dataset.NewInMemory(x, y)
			So(mem.Update(ds, 0, 4), ShouldBeNil)

			Convey("It should store everything", func() {
				So(mem.Len(0), ShouldEqual, 2)
			})
		})

		Convey("When the source is mutated after ingestion", func() {
			x, y := rampData(4)
			ds, _ := dataset.NewInMemory(x, y)
			So(mem.Update(ds, 0, 4), ShouldBeNil)
			x[0][0] = 99
			y[0] = 2

			Convey("The memory should hold its own copy", func() {
				got, _ := mem.Get(0)
				So(got.X[0][0], ShouldEqual, float32(0))
				So(got.Y[0], ShouldEqual, 0)
			})
		})

		Convey("When a caller edits the samples it read back", func() {
			x, y := rampData(4)
			ds, _ := dataset.NewInMemory(x, y)
			So(mem.Update(ds, 0, 4), ShouldBeNil)
			got, _ := mem.Get(0)
			got.X[0][0] = 42
			got.Y[1] = 7

			Convey("The stored experience should be unchanged", func() {
				again, _ := mem.Get(0)
				So(again.X[0], ShouldResemble, []float32{0, 0})
				So(again.Y, ShouldResemble, []int{0, 1, 2})
			})
		})

		Convey("When the same experience is stored twice", func() {
			x, y := rampData(4)
			ds, _ := dataset.NewInMemory(x, y)
			So(mem.Update(ds, 0, 2), ShouldBeNil)
			err := mem.Update(ds, 0, 2)

			Convey("It should refuse the second call", func() {
				So(errors.Is(err, ErrDuplicateExperience), ShouldBeTrue)
				So(mem.Len(0), ShouldEqual, 3)
			})

			Convey("A reset should allow it again", func() {
				mem.Reset()
				So(mem.Update(ds, 0, 2), ShouldBeNil)
				So(mem.Len(0), ShouldEqual, 3)
			})
		})

		Convey("When the chunk size is not positive", func() {
			x, y := rampData(4)
			ds, _ := dataset.NewInMemory(x, y)

			Convey("It should report a configuration fault", func() {
				So(errors.Is(mem.Update(ds, 0, 0), ErrInvalidConfig), ShouldBeTrue)
			})
		})

		Convey("When an experience was never stored", func() {
			_, ok := mem.Get(4)

			Convey("It should signal not found", func() {
				So(ok, ShouldBeFalse)
				So(mem.Len(4), ShouldEqual, 0)
			})
		})
	})
}

func TestMemoryNeverExceedsCapacity(t *testing.T) {
	for _, tc := range []struct {
		capacity, samples, chunk int
	}{
		{1, 10, 3},
		{3, 5, 3},
		{4, 4, 4},
		{5, 3, 1},
		{8, 20, 7},
	} {
		mem, err := NewMemory(tc.capacity)
		assert.NoError(t, err)
		x, y := rampData(tc.samples)
		ds, _ := dataset.NewInMemory(x, y)
		assert.NoError(t, mem.Update(ds, 2, tc.chunk))

		want := min(tc.capacity, tc.samples)
		assert.Equal(t, want, mem.Len(2), "capacity=%d samples=%d chunk=%d", tc.capacity, tc.samples, tc.chunk)
		assert.Equal(t, []int{2}, mem.Experiences())
	}
}

func TestMemoryDeterministic(t *testing.T) {
	x, y := rampData(9)
	ds, _ := dataset.NewInMemory(x, y)

	a, _ := NewMemory(5)
	b, _ := NewMemory(5)
	assert.NoError(t, a.Update(ds, 0, 4))
	assert.NoError(t, b.Update(ds, 0, 4))

	ga, _ := a.Get(0)
	gb, _ := b.Get(0)
	assert.Equal(t, ga, gb)
}

func TestNewMemoryRejectsBadCapacity(t *testing.T) {
	for _, c := range []int{0, -1} {
		_, err := NewMemory(c)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	}
}
