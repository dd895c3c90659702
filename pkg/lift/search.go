package lift

// NearestAbove returns the lowest requested floor at or above current.
// NearestAbove는 현재 층 이상에서 가장 가까운 호출 층을 반환합니다.
func NearestAbove(current Floor, floors []Floor) (Floor, bool) {
	target := 0
	found := false
	for _, f := range floors {
		if f >= current && (!found || f < target) {
			target = f
			found = true
		}
	}
	return target, found
}

// NearestBelow returns the highest requested floor at or below current.
// NearestBelow는 현재 층 이하에서 가장 가까운 호출 층을 반환합니다.
func NearestBelow(current Floor, floors []Floor) (Floor, bool) {
	target := 0
	found := false
	for _, f := range floors {
		if f <= current && (!found || f > target) {
			target = f
			found = true
		}
	}
	return target, found
}

// NearestAny returns the requested floor closest to current in either
// direction. Equidistant floors resolve to the lower floor number.
func NearestAny(current Floor, floors []Floor) (Floor, bool) {
	target := 0
	minDist := 0
	found := false
	for _, f := range floors {
		dist := absFloor(f - current)
		if !found || dist < minDist || (dist == minDist && f < target) {
			target = f
			minDist = dist
			found = true
		}
	}
	return target, found
}

func absFloor(f Floor) Floor {
	if f < 0 {
		return -f
	}
	return f
}
