package improvement

import (
	"testing"

	"github.com/aeroopt/optimization-core/pkg/models"
)

func TestGeometryID(t *testing.T) {
	tests := []struct {
		name   string
		params models.Parameters
		want   string
	}{
		{
			name:   "classic 2412",
			params: models.Parameters{Thickness: 0.12, MaxCamber: 0.02, CamberPosition: 0.4, Alpha: 2.0},
			want:   "NACA2412_a2.0",
		},
		{
			name:   "symmetric section",
			params: models.Parameters{Thickness: 0.10, MaxCamber: 0.0, CamberPosition: 0.4, Alpha: 0.0},
			want:   "NACA0410_a0.0",
		},
		{
			name:   "thin section zero-pads thickness",
			params: models.Parameters{Thickness: 0.08, MaxCamber: 0.04, CamberPosition: 0.4, Alpha: 5.0},
			want:   "NACA4408_a5.0",
		},
		{
			name:   "negative alpha",
			params: models.Parameters{Thickness: 0.12, MaxCamber: 0.02, CamberPosition: 0.4, Alpha: -1.5},
			want:   "NACA2412_a-1.5",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GeometryID(tt.params); got != tt.want {
				t.Errorf("GeometryID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGeometryIDDeterministic(t *testing.T) {
	p := models.Parameters{Thickness: 0.1234, MaxCamber: 0.0456, CamberPosition: 0.4321, Alpha: 3.7}
	first := GeometryID(p)
	for i := 0; i < 10; i++ {
		if got := GeometryID(p); got != first {
			t.Fatalf("GeometryID not stable: %q vs %q", got, first)
		}
	}
}

func TestAdvisoryWarnings(t *testing.T) {
	benign := models.Parameters{Thickness: 0.12, MaxCamber: 0.02, CamberPosition: 0.4, Alpha: 2.0}
	if w := AdvisoryWarnings(benign); len(w) != 0 {
		t.Errorf("benign parameters produced warnings: %v", w)
	}

	marginal := models.Parameters{Thickness: 0.18, MaxCamber: 0.07, CamberPosition: 0.4, Alpha: 9.0}
	w := AdvisoryWarnings(marginal)
	if len(w) != 3 {
		t.Fatalf("got %d warnings, want 3: %v", len(w), w)
	}
}
