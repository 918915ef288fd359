package state

// ClosePolygon returns the polyline with its first point appended, unless it
// is already closed or empty.
func ClosePolygon(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	out := append([]Point(nil), points...)
	if last := out[len(out)-1]; last != out[0] {
		out = append(out, out[0])
	}
	return out
}

// PointInPolygon tests p against the polygon by ray casting: a horizontal ray
// from p toward +X flips parity at every edge it crosses. Points on an edge
// are not guaranteed either way; callers needing strict containment should
// treat edge hits as outside.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]
		if (pi.Y > p.Y) != (pj.Y > p.Y) &&
			p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X {
			inside = !inside
		}
	}
	return inside
}

// SelectInLasso returns the ids of elements whose bounds centroid lies
// inside the closed lasso polygon. Elements overlapping the lasso without
// their centroid inside are not selected.
func SelectInLasso(lasso []Point, candidates []Element, all []Element) []string {
	poly := ClosePolygon(lasso)
	if len(poly) < 4 {
		return nil
	}
	var ids []string
	for _, el := range candidates {
		if PointInPolygon(Bounds(el, all).Center(), poly) {
			ids = append(ids, el.ID)
		}
	}
	return ids
}
