package annotator

// Point-in-polygon tests use even-odd ray casting with a half-open crossing
// rule: an edge counts when exactly one endpoint lies strictly above the
// horizontal through the point, and the crossing lies strictly to the right.
// As a consequence points exactly on a left or top-facing edge test inside
// while points on a right or bottom-facing edge test outside. Shared edges of
// adjacent polygons are therefore claimed by exactly one of them.

// PointInRing reports whether p lies inside a ring given as [x, y] pairs.
// Rings with fewer than three vertices, or any malformed pair, contain nothing.
func PointInRing(p Vec2, ring [][]float64) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		if len(ring[i]) < 2 || len(ring[j]) < 2 {
			return false
		}
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInPoints is PointInRing for a []Vec2 outline.
func PointInPoints(p Vec2, pts []Vec2) bool {
	n := len(pts)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := pts[i].X, pts[i].Y
		xj, yj := pts[j].X, pts[j].Y
		if (yi > p.Y) != (yj > p.Y) && p.X < (xj-xi)*(p.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// PointInMask reports whether p lies inside any ring of the annotation's mask.
// Annotations without segmentation never match. The bounding box (edges
// inclusive) is checked first.
func PointInMask(p Vec2, ann ServerAnnotation) bool {
	if !ann.Polygon.HasSegmentation {
		return false
	}
	if !ann.Bounds().Contains(p.X, p.Y) {
		return false
	}
	for _, ring := range ann.Polygon.Polygons {
		if PointInRing(p, ring) {
			return true
		}
	}
	return false
}

// MaskAtPoint returns the mask under p. When several masks contain p the one
// with the smallest bounding-box area wins, so a small object lying on top of
// a large one stays reachable. Equal areas keep the earlier annotation.
func MaskAtPoint(p Vec2, anns []ServerAnnotation) (ServerAnnotation, bool) {
	best := -1
	bestArea := 0.0
	for i := range anns {
		if !PointInMask(p, anns[i]) {
			continue
		}
		area := anns[i].Bounds().Area()
		if best < 0 || area < bestArea {
			best = i
			bestArea = area
		}
	}
	if best < 0 {
		return ServerAnnotation{}, false
	}
	return anns[best], true
}

// BBoxIntersectsMask approximates whether box touches the annotation's mask.
// Rectangles that only share an edge are rejected; otherwise the mask matches
// when any ring vertex lies inside box (edges inclusive).
//
// This is a vertex test, not polygon clipping: a ring edge that crosses the
// box without any vertex inside it is not detected.
func BBoxIntersectsMask(box Rect, ann ServerAnnotation) bool {
	if !ann.Polygon.HasSegmentation {
		return false
	}
	if !box.Overlaps(ann.Bounds()) {
		return false
	}
	for _, ring := range ann.Polygon.Polygons {
		for _, pt := range ring {
			if len(pt) >= 2 && box.Contains(pt[0], pt[1]) {
				return true
			}
		}
	}
	return false
}

// MasksIntersectingBBox returns the IDs of all annotations matched by
// BBoxIntersectsMask, in input order.
func MasksIntersectingBBox(box Rect, anns []ServerAnnotation) []int {
	var ids []int
	for i := range anns {
		if BBoxIntersectsMask(box, anns[i]) {
			ids = append(ids, anns[i].ID)
		}
	}
	return ids
}
