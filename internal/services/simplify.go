package services

import (
	"log"
	"math"

	"github.com/twpayne/go-geom"
)

// Constants for ring complexity thresholds
const (
	// Maximum number of points before simplification is considered
	maxPoints = 700
	// Minimum number of points to consider for simplification
	minPoints = 400
	// Base percentage of bounding box diagonal for epsilon
	baseEpsilonPercent = 0.1 // 0.1% of the diagonal
)

// ringArea calculates the area of a ring using the shoelace formula
func ringArea(ring []geom.Coord) float64 {
	area := 0.0
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		area += (ring[j].X() + ring[i].X()) * (ring[j].Y() - ring[i].Y())
		j = i
	}
	return math.Abs(area) / 2
}

// boundingBoxDiagonal calculates the diagonal length of the ring's bounding box
func boundingBoxDiagonal(ring []geom.Coord) float64 {
	if len(ring) == 0 {
		return 0
	}

	bounds := geom.NewBounds(geom.XY)
	for _, c := range ring {
		bounds.Extend(geom.NewPointFlat(geom.XY, []float64{c.X(), c.Y()}))
	}

	dx := bounds.Max(0) - bounds.Min(0)
	dy := bounds.Max(1) - bounds.Min(1)
	return math.Sqrt(dx*dx + dy*dy)
}

// ringComplexity determines if a ring needs simplification and returns an appropriate epsilon value
func ringComplexity(ring []geom.Coord) (bool, float64) {
	numPoints := len(ring)

	if numPoints < minPoints {
		return false, 0
	}

	area := ringArea(ring)
	if area == 0 {
		return false, 0
	}

	pointsPerArea := float64(numPoints) / area
	if numPoints <= maxPoints && pointsPerArea <= 700 {
		return false, 0
	}

	diagonal := boundingBoxDiagonal(ring)
	baseEpsilon := diagonal * baseEpsilonPercent / 100.0

	// More points = larger epsilon (more simplification)
	epsilon := baseEpsilon * math.Pow(float64(numPoints)/float64(minPoints), 0.55)

	// Maximum epsilon is 1% of the diagonal
	maxEpsilon := diagonal * 0.01
	if epsilon > maxEpsilon {
		epsilon = maxEpsilon
	}

	return true, epsilon
}

// perpendicularDistance calculates the perpendicular distance from a point to a line segment
func perpendicularDistance(point, lineStart, lineEnd geom.Coord) float64 {
	// If the line segment is actually a point, return distance to that point
	if lineStart.X() == lineEnd.X() && lineStart.Y() == lineEnd.Y() {
		return math.Hypot(point.X()-lineStart.X(), point.Y()-lineStart.Y())
	}

	// Twice the area of the triangle
	area := math.Abs((lineEnd.Y()-lineStart.Y())*point.X() - (lineEnd.X()-lineStart.X())*point.Y() + lineEnd.X()*lineStart.Y() - lineEnd.Y()*lineStart.X())

	lineLength := math.Hypot(lineEnd.X()-lineStart.X(), lineEnd.Y()-lineStart.Y())

	return area / lineLength
}

// simplifyLine applies the Ramer-Douglas-Peucker algorithm
func simplifyLine(points []geom.Coord, epsilon float64) []geom.Coord {
	if len(points) <= 2 {
		return points
	}

	maxDistance := 0.0
	maxIndex := 0

	for i := 1; i < len(points)-1; i++ {
		distance := perpendicularDistance(points[i], points[0], points[len(points)-1])
		if distance > maxDistance {
			maxDistance = distance
			maxIndex = i
		}
	}

	if maxDistance > epsilon {
		firstLine := simplifyLine(points[:maxIndex+1], epsilon)
		secondLine := simplifyLine(points[maxIndex:], epsilon)

		// firstLine may alias points; copy before appending
		combined := make([]geom.Coord, 0, len(firstLine)+len(secondLine)-1)
		combined = append(combined, firstLine[:len(firstLine)-1]...)
		return append(combined, secondLine...)
	}

	return []geom.Coord{points[0], points[len(points)-1]}
}

// simplifyRing simplifies a closed ring, returning it unchanged when it is
// simple enough or when simplification would leave fewer than four points.
func simplifyRing(ring []geom.Coord) []geom.Coord {
	needsSimplification, epsilon := ringComplexity(ring)
	if !needsSimplification {
		return ring
	}

	simplified := simplifyLine(ring, epsilon)
	if len(simplified) < 4 {
		return ring
	}

	log.Printf("Ring simplified from %d to %d points (epsilon: %f)", len(ring), len(simplified), epsilon)
	return simplified
}

func simplifyRings(rings [][]geom.Coord) [][]geom.Coord {
	out := make([][]geom.Coord, len(rings))
	for i, ring := range rings {
		out[i] = simplifyRing(ring)
	}
	return out
}

// simplifyGeometry simplifies every ring of a Polygon or MultiPolygon. Other
// geometries, and geometries that fail to rebuild, are returned unchanged.
func simplifyGeometry(g geom.T) geom.T {
	switch g := g.(type) {
	case *geom.Polygon:
		p, err := geom.NewPolygon(g.Layout()).SetCoords(simplifyRings(g.Coords()))
		if err != nil {
			log.Printf("Warning: keeping unsimplified polygon: %v", err)
			return g
		}
		return p
	case *geom.MultiPolygon:
		polygons := g.Coords()
		out := make([][][]geom.Coord, len(polygons))
		for i, rings := range polygons {
			out[i] = simplifyRings(rings)
		}
		mp, err := geom.NewMultiPolygon(g.Layout()).SetCoords(out)
		if err != nil {
			log.Printf("Warning: keeping unsimplified multipolygon: %v", err)
			return g
		}
		return mp
	}
	return g
}
