package vrp

import "testing"

func TestNewClientRejectsInvertedTimeWindow(t *testing.T) {
	if _, err := NewClient(0, 0, 1, 1, 0, -1, -1, 0, 100, 50, 0, true); err == nil {
		t.Fatalf("expected error for twEarly > twLate")
	}
}

func TestNewClientRejectsNegativeDemand(t *testing.T) {
	if _, err := NewClient(0, 0, -1, 1, 0, -1, -1, 0, 0, 100, 0, true); err == nil {
		t.Fatalf("expected error for negative demandWeight")
	}
}

func TestNewProblemDataRejectsMismatchedMatrix(t *testing.T) {
	depot, _ := NewClient(0, 0, 0, 0, 0, -1, -1, 0, 0, 100, 0, true)
	c1, _ := NewClient(1, 0, 1, 1, 0, -1, -1, 0, 0, 100, 0, true)

	badDist := NewMatrix(3, make([]Distance, 9))
	badDur := NewMatrix(3, make([]Duration, 9))
	_, err := NewProblemData([]Client{depot, c1}, 1, 10, 10, 10, 10, badDist, badDur)
	if err == nil {
		t.Fatalf("expected error when matrix side does not match client count")
	}
}

func TestProblemDataCentroidExcludesDepot(t *testing.T) {
	data := triangleData(t)
	cx, cy := data.Centroid()
	// clients at (5,0), (10,0), (5,5): centroid (20/3, 5/3)
	if cx < 6.6 || cx > 6.7 {
		t.Fatalf("centroid x = %f, want ~6.667", cx)
	}
	if cy < 1.6 || cy > 1.7 {
		t.Fatalf("centroid y = %f, want ~1.667", cy)
	}
}
