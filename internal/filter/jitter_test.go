package filter

import "testing"

func TestJitter(t *testing.T) {
	t.Run("first point is accepted", func(t *testing.T) {
		j := NewJitter(2, 0.5, 3)
		p, held := j.Filter(Point{X: 10, Y: 10})
		if held || p != (Point{X: 10, Y: 10}) {
			t.Errorf("Filter() = %+v, %v", p, held)
		}
	})

	t.Run("large move is accepted immediately", func(t *testing.T) {
		j := NewJitter(2, 0.5, 3)
		j.Filter(Point{X: 10, Y: 10})
		p, held := j.Filter(Point{X: 13, Y: 10})
		if held || p != (Point{X: 13, Y: 10}) {
			t.Errorf("Filter() = %+v, %v, want (13, 10) accepted", p, held)
		}
	})

	t.Run("small move is debounced", func(t *testing.T) {
		j := NewJitter(2, 0.5, 3)
		j.Filter(Point{X: 10, Y: 10})

		small := Point{X: 11, Y: 10}
		for i := 0; i < 2; i++ {
			p, held := j.Filter(small)
			if !held || p != (Point{X: 10, Y: 10}) {
				t.Fatalf("frame %d: Filter() = %+v, %v, want held at (10, 10)", i, p, held)
			}
		}
		p, held := j.Filter(small)
		if held || p != small {
			t.Errorf("third frame: Filter() = %+v, %v, want %+v accepted", p, held, small)
		}
	})

	t.Run("motion inside dead zone never drifts", func(t *testing.T) {
		j := NewJitter(2, 0.5, 3)
		j.Filter(Point{X: 10, Y: 10})

		for i := 0; i < 20; i++ {
			p, _ := j.Filter(Point{X: 10.3, Y: 10})
			if p != (Point{X: 10, Y: 10}) {
				t.Fatalf("frame %d: Filter() = %+v, want (10, 10)", i, p)
			}
		}
	})

	t.Run("reset forgets stable point", func(t *testing.T) {
		j := NewJitter(2, 0.5, 3)
		j.Filter(Point{X: 10, Y: 10})
		j.Reset()
		p, held := j.Filter(Point{X: 10.5, Y: 10})
		if held || p != (Point{X: 10.5, Y: 10}) {
			t.Errorf("Filter() after Reset = %+v, %v", p, held)
		}
	})
}
