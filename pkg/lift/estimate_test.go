package lift

import (
	"math"
	"testing"
)

func TestTimeToFloor_NoEstimate(t *testing.T) {
	c := New(testConfig())

	// Neutral direction
	moving := &testLift{position: 2, velocity: 1, floors: []Floor{5}}
	if _, ok := c.TimeToFloor(moving, 5, 3); ok {
		t.Error("Expected no estimate without a held direction")
	}

	// Stationary
	c.direction = DirUp
	stationary := &testLift{position: 2, velocity: 0.0005, floors: []Floor{5}}
	if _, ok := c.TimeToFloor(stationary, 5, 3); ok {
		t.Error("Expected no estimate while stationary")
	}
}

func TestTimeToFloor(t *testing.T) {
	tests := []struct {
		name      string
		direction Direction
		position  Position
		velocity  Velocity
		floors    []Floor
		target    Floor
		want      float64
	}{
		{
			name:      "up, target ahead",
			direction: DirUp, position: 2, velocity: 1,
			floors: []Floor{4, 6}, target: 5,
			want: 1*3 + 3,
		},
		{
			name:      "up, target behind reverses at highest request",
			direction: DirUp, position: 2, velocity: 1,
			floors: []Floor{1, 4, 6}, target: 0,
			// stops at 4, 6 and 1; distance 4 up and 6 down
			want: 3*3 + 10,
		},
		{
			name:      "up, nothing above reverses in place",
			direction: DirUp, position: 7, velocity: -0.5,
			floors: []Floor{3}, target: 2,
			want: 1*3 + 5/0.5,
		},
		{
			name:      "down, target ahead",
			direction: DirDown, position: 8, velocity: -2,
			floors: []Floor{7, 6, 1}, target: 3,
			want: 2*3 + 5.0/2,
		},
		{
			name:      "down, target behind reverses at lowest request",
			direction: DirDown, position: 4.5, velocity: -1,
			floors: []Floor{2, 0, 6}, target: 8,
			// stops at 2, 0 and 6; distance 4.5 down and 8 up
			want: 3*3 + 12.5,
		},
		{
			name:      "up, target at current position",
			direction: DirUp, position: 3, velocity: 1,
			floors: []Floor{3}, target: 3,
			want: 0,
		},
		{
			name:      "duplicate requests count per entry",
			direction: DirUp, position: 0, velocity: 1,
			floors: []Floor{2, 2}, target: 4,
			want: 2*3 + 4,
		},
		{
			name:      "empty panel",
			direction: DirDown, position: 6, velocity: 1,
			floors: nil, target: 1,
			want: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(testConfig())
			c.direction = tt.direction
			l := &testLift{position: tt.position, velocity: tt.velocity, floors: tt.floors}

			got, ok := c.TimeToFloor(l, tt.target, 3)
			if !ok {
				t.Fatal("Expected an estimate")
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %.4f seconds, got %.4f", tt.want, got)
			}
		})
	}
}
