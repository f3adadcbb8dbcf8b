package filter

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kalman tracks a 2D point with a constant-velocity model over the state
// [x y vx vy]. Only the position is observed.
type Kalman struct {
	f, h, q, r *mat.Dense
	eye        *mat.Dense
	p0         float64

	x           *mat.VecDense
	p           *mat.Dense
	initialized bool
}

// NewKalman builds a filter stepping dt seconds per update.
func NewKalman(dt, processNoise, measurementNoise, initialCovariance float64) *Kalman {
	k := &Kalman{
		f: mat.NewDense(4, 4, []float64{
			1, 0, dt, 0,
			0, 1, 0, dt,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		h: mat.NewDense(2, 4, []float64{
			1, 0, 0, 0,
			0, 1, 0, 0,
		}),
		q:   scaledIdentity(4, processNoise),
		r:   scaledIdentity(2, measurementNoise),
		eye: scaledIdentity(4, 1),
		p0:  initialCovariance,
	}
	k.Reset()
	return k
}

// Reset forgets the tracked point. The next update seeds the state.
func (k *Kalman) Reset() {
	k.x = mat.NewVecDense(4, nil)
	k.p = scaledIdentity(4, k.p0)
	k.initialized = false
}

// Update folds one measurement into the state and returns the filtered
// position. The first measurement is returned unchanged. A non-finite
// measurement is refused: the state is left alone and ok is false.
func (k *Kalman) Update(zx, zy float64) (p Point, ok bool) {
	if !finite(zx) || !finite(zy) {
		return k.Position(), false
	}
	if !k.initialized {
		k.seed(zx, zy)
		return Point{X: zx, Y: zy}, true
	}

	// Predict.
	var xPred mat.VecDense
	xPred.MulVec(k.f, k.x)

	var fp, pPred mat.Dense
	fp.Mul(k.f, k.p)
	pPred.Mul(&fp, k.f.T())
	pPred.Add(&pPred, k.q)

	// Update.
	z := mat.NewVecDense(2, []float64{zx, zy})
	var hx, residual mat.VecDense
	hx.MulVec(k.h, &xPred)
	residual.SubVec(z, &hx)

	var hp, s mat.Dense
	hp.Mul(k.h, &pPred)
	s.Mul(&hp, k.h.T())
	s.Add(&s, k.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		k.seed(zx, zy)
		return Point{X: zx, Y: zy}, true
	}

	var pht, gain mat.Dense
	pht.Mul(&pPred, k.h.T())
	gain.Mul(&pht, &sInv)

	var correction, xNew mat.VecDense
	correction.MulVec(&gain, &residual)
	xNew.AddVec(&xPred, &correction)

	var kh, ikh, pNew mat.Dense
	kh.Mul(&gain, k.h)
	ikh.Sub(k.eye, &kh)
	pNew.Mul(&ikh, &pPred)

	// A poisoned covariance never recovers on its own; start over from the
	// measurement instead of carrying NaNs forward.
	if !finiteMatrix(&xNew) || !finiteMatrix(&pNew) {
		k.seed(zx, zy)
		return Point{X: zx, Y: zy}, true
	}

	k.x = &xNew
	k.p = &pNew
	return k.Position(), true
}

// Position returns the current position estimate.
func (k *Kalman) Position() Point {
	return Point{X: k.x.AtVec(0), Y: k.x.AtVec(1)}
}

// Velocity returns the current velocity estimate in units per second.
func (k *Kalman) Velocity() Point {
	return Point{X: k.x.AtVec(2), Y: k.x.AtVec(3)}
}

func (k *Kalman) seed(zx, zy float64) {
	k.x = mat.NewVecDense(4, []float64{zx, zy, 0, 0})
	k.p = scaledIdentity(4, k.p0)
	k.initialized = true
}

func scaledIdentity(n int, v float64) *mat.Dense {
	d := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.Set(i, i, v)
	}
	return d
}

func finiteMatrix(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if !finite(m.At(i, j)) {
				return false
			}
		}
	}
	return true
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
