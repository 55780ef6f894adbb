package gem

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"gonum.org/v1/gonum/mat"

	"continual-gem/dataset"
	"continual-gem/nn"
)

// twoParams has gradients [a0 a1] and [[b0 b1]], flattening to 4 entries.
func twoParams(grads ...float32) []*nn.Param {
	a := nn.NewParam("a", 2)
	b := nn.NewParam("b", 1, 2)
	a.Grad = &nn.Tensor{Shape: []int{2}, Data: append([]float32(nil), grads[:2]...)}
	b.Grad = &nn.Tensor{Shape: []int{1, 2}, Data: append([]float32(nil), grads[2:]...)}
	return []*nn.Param{a, b}
}

func withReference(p *Projector, G *mat.Dense) {
	r, _ := G.Dims()
	p.g, p.rows = G, r
}

func TestMaybeProject(t *testing.T) {
	Convey("Given a projector with two reference gradients", t, func() {
		proj, err := NewProjector(0)
		So(err, ShouldBeNil)
		G := mat.NewDense(2, 4, []float64{
			1, 0, 1, 0,
			0, 1, 0, 1,
		})
		withReference(proj, G)

		Convey("When the current gradient conflicts with both", func() {
			params := twoParams(-1, -1, 0, 0)
			projected, err := proj.MaybeProject(params, 2)
			So(err, ShouldBeNil)
			So(projected, ShouldBeTrue)
			So(proj.LastMinDot(), ShouldEqual, -1)

			Convey("The parameter gradients should hold the projection", func() {
				flat, _ := nn.FlattenGrads(params)
				x := 1 / (2 + qpRegularizer)
				want := []float64{x - 1, x - 1, x, x}
				for i := range want {
					So(float64(flat[i]), ShouldAlmostEqual, want[i], 1e-6)
				}
				So(params[1].Grad.Shape, ShouldResemble, []int{1, 2})

				var dots mat.VecDense
				dots.MulVec(G, mat.NewVecDense(4, nn.ToFloat64(flat)))
				So(dots.AtVec(0), ShouldBeGreaterThanOrEqualTo, -qpRegularizer)
				So(dots.AtVec(1), ShouldBeGreaterThanOrEqualTo, -qpRegularizer)
			})
		})

		Convey("When the current gradient agrees with both", func() {
			params := twoParams(0.25, 1, 0.5, -0.125)
			projected, err := proj.MaybeProject(params, 2)

			Convey("It should leave the gradient untouched", func() {
				So(err, ShouldBeNil)
				So(projected, ShouldBeFalse)
				So(params[0].Grad.Data, ShouldResemble, []float32{0.25, 1})
				So(params[1].Grad.Data, ShouldResemble, []float32{0.5, -0.125})
			})
		})

		Convey("When no experience has been completed", func() {
			params := twoParams(-1, -1, 0, 0)
			projected, err := proj.MaybeProject(params, 0)

			Convey("It should be a no-op", func() {
				So(err, ShouldBeNil)
				So(projected, ShouldBeFalse)
				So(params[0].Grad.Data, ShouldResemble, []float32{-1, -1})
				So(params[1].Grad.Data, ShouldResemble, []float32{0, 0})
			})
		})

		Convey("When the reference matrix is for a different experience count", func() {
			_, err := proj.MaybeProject(twoParams(-1, -1, 0, 0), 3)

			Convey("It should report a stale reference", func() {
				So(errors.Is(err, ErrStaleReference), ShouldBeTrue)
			})
		})

		Convey("When the parameter walk does not match the reference width", func() {
			params := append(twoParams(-1, -1, 0, 0), &nn.Param{
				Name:  "extra",
				Value: nn.NewTensor(1),
				Grad:  nn.NewTensor(1),
			})

			Convey("It should abort loudly", func() {
				So(func() { _, _ = proj.MaybeProject(params, 2) }, ShouldPanic)
			})
		})
	})
}

func TestNewProjector(t *testing.T) {
	Convey("Given a negative memory strength", t, func() {
		_, err := NewProjector(-0.1)

		Convey("It should report a configuration fault", func() {
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}

func TestRefresh(t *testing.T) {
	Convey("Given a model and memory for one finished experience", t, func() {
		model, err := nn.NewMLP([]int{3, 4, 2}, 1)
		So(err, ShouldBeNil)
		params := model.Parameters()
		opt := nn.NewSGD(0.1, 0)
		host := Host{Model: model, Criterion: nn.CrossEntropy{}, Optimizer: opt}

		x := [][]float32{{1, 0, -1}, {0.5, 2, 0}, {-1, -1, 1}, {0, 0.25, 0.5}}
		y := []int{0, 1, 1, 0}
		ds, _ := dataset.NewInMemory(x, y)
		mem, _ := NewMemory(3)
		So(mem.Update(ds, 0, 2), ShouldBeNil)

		proj, _ := NewProjector(0.5)

		Convey("When reference gradients are refreshed over dirty buffers", func() {
			nn.LossBackward(model, nn.CrossEntropy{}, x, y)
			for _, p := range params {
				for i := range p.Grad.Data {
					p.Grad.Data[i] = 5
				}
			}
			So(proj.Refresh(host, mem, 1), ShouldBeNil)

			Convey("It should leave every gradient buffer zeroed", func() {
				for _, p := range params {
					for _, v := range p.Grad.Data {
						So(v, ShouldEqual, float32(0))
					}
				}
			})

			Convey("Its single row should be the clean gradient on the memory", func() {
				ref, _ := mem.Get(0)
				opt.ZeroGrad(params)
				nn.LossBackward(model, nn.CrossEntropy{}, ref.X, ref.Y)
				want, _ := nn.FlattenGrads(params)

				G := proj.Reference()
				r, c := G.Dims()
				So(r, ShouldEqual, 1)
				So(c, ShouldEqual, nn.NumParams(params))
				for j, w := range want {
					So(G.At(0, j), ShouldEqual, float64(w))
				}
			})
		})

		Convey("When refreshed for the first experience", func() {
			So(proj.Refresh(host, mem, 0), ShouldBeNil)

			Convey("It should hold no reference matrix", func() {
				So(proj.Reference(), ShouldBeNil)
			})
		})

		Convey("When an earlier experience has no memory", func() {
			err := proj.Refresh(host, mem, 2)

			Convey("It should fail instead of defaulting to zero", func() {
				So(errors.Is(err, ErrMissingMemory), ShouldBeTrue)
				So(proj.Reference(), ShouldBeNil)
			})
		})

		Convey("When the host has no criterion", func() {
			host.Criterion = nil

			Convey("It should report the missing criterion", func() {
				So(errors.Is(proj.Refresh(host, mem, 1), ErrMissingCriterion), ShouldBeTrue)
			})
		})
	})
}
