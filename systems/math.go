package systems

// Bounds is the navigable world rectangle.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float32
}

// Contains reports whether the point lies inside the bounds.
func (b Bounds) Contains(x, y float32) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

// ClampPoint clamps a point into the bounds.
func (b Bounds) ClampPoint(x, y float32) (float32, float32) {
	return clampFloat(x, b.MinX, b.MaxX), clampFloat(y, b.MinY, b.MaxY)
}

// clampFloat clamps a float32 value between min and max.
func clampFloat(v, minVal, maxVal float32) float32 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}

// lerp interpolates linearly between a and b by t in [0,1].
func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}

// distanceSq returns the squared distance between two points.
func distanceSq(x1, y1, x2, y2 float32) float32 {
	dx := x1 - x2
	dy := y1 - y2
	return dx*dx + dy*dy
}
