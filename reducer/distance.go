package reducer

import "math"

const degToRad = math.Pi / 180

// Metric measures how far current deviates from the line between start and end.
type Metric interface {
	Distance(current, start, end Point) float64
}

func MetricFor(dataType DataType) Metric {
	if dataType == DataTypeGPS {
		return gpsMetric{}
	}

	return planarMetric{}
}

type planarMetric struct{}

func (planarMetric) Distance(current, start, end Point) float64 {
	return PerpendicularDistance(current.Value, current.Timestamp, start.Value, start.Timestamp,
		end.Value, end.Timestamp)
}

type gpsMetric struct{}

func (gpsMetric) Distance(current, start, end Point) float64 {
	return GPSDistance(current, start, end)
}

func distanceBetweenPointsSquared(vx, vy, wx, wy float64) float64 {
	return (vx-wx)*(vx-wx) + (vy-wy)*(vy-wy)
}

// distanceToSegmentSquared projects p on [v, w]; the projection is clamped to the segment ends.
func distanceToSegmentSquared(px, py, vx, vy, wx, wy float64) float64 {
	l2 := distanceBetweenPointsSquared(vx, vy, wx, wy)
	if l2 == 0 {
		return distanceBetweenPointsSquared(px, py, vx, vy)
	}

	t := ((px-vx)*(wx-vx) + (py-vy)*(wy-vy)) / l2
	if t < 0 {
		return distanceBetweenPointsSquared(px, py, vx, vy)
	}

	if t > 1 {
		return distanceBetweenPointsSquared(px, py, wx, wy)
	}

	return distanceBetweenPointsSquared(px, py, vx+t*(wx-vx), vy+t*(wy-vy))
}

// PerpendicularDistance is the euclidean distance of (px, py) to the segment [(vx, vy), (wx, wy)].
func PerpendicularDistance(px, py, vx, vy, wx, wy float64) float64 {
	return math.Sqrt(distanceToSegmentSquared(px, py, vx, vy, wx, wy))
}

// estimateLatLongDistance is an equirectangular approximation, in radians of arc.
func estimateLatLongDistance(startLat, startLong, endLat, endLong float64) float64 {
	startLatRad := startLat * degToRad
	endLatRad := endLat * degToRad
	startLongRad := startLong * degToRad
	endLongRad := endLong * degToRad

	x := float64((endLongRad - startLongRad) * strictCos((startLatRad+endLatRad)/2))
	y := endLatRad - startLatRad

	return math.Sqrt(float64(x*x) + float64(y*y))
}

// GPSDistance approximates the deviation of current from the track start -> end as
// triangle area over base, scaled by 1e6. Only meaningful for short spans.
//
// The cosine of the area term takes the mean latitude in degrees, not radians. Changing
// it changes which points are kept, so it stays. Cosines are fdlibm's, so results match
// the JVM bit for bit.
func GPSDistance(current, start, end Point) float64 {
	cross := float64(start.Timestamp*(end.Value-current.Value)) +
		float64(current.Timestamp*(start.Value-end.Value)) +
		float64(end.Timestamp*(current.Value-start.Value))

	area := math.Abs(float64(float64(cross*strictCos((start.Value+end.Value)/2)) * degToRad))

	if area == 0 {
		return 0
	}

	base := estimateLatLongDistance(start.Value, start.Timestamp, end.Value, end.Timestamp)

	var distance float64

	if base > 0 {
		distance = area / base
	}

	return distance * 1e6
}
