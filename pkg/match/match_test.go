package match

import "testing"

func TestFindBestMatch(t *testing.T) {
	tests := []struct {
		input      string
		candidates []string
		want       string
	}{
		{"wheat123", nil, "wheat"},
		{"wheat123", []string{}, "wheat"},
		{" Ma1ze!! ", nil, "maize"},
		{"maiz3e", nil, "maize"},
		{"whaet", nil, "wheat"},
		{"xyz!!", nil, NoMatch},
		{"", nil, NoMatch},
		{"rice", []string{"rice", "rye"}, "rice"},
		{"ry", []string{"rye", "ryx"}, "rye"},
	}

	for _, tt := range tests {
		if got := FindBestMatch(tt.input, tt.candidates); got != tt.want {
			t.Errorf("FindBestMatch(%q, %v) = %q, want %q", tt.input, tt.candidates, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	if got := Clean("w-h e.a_t[1]"); got != "wheat" {
		t.Errorf("Clean() = %q", got)
	}
}

func TestScaleFor(t *testing.T) {
	tests := map[string]float64{
		"maize":  0.1850,
		"wheat":  0.30,
		NoMatch:  0.25,
		"barley": 0.25,
	}
	for label, want := range tests {
		if got := ScaleFor(label); got != want {
			t.Errorf("ScaleFor(%q) = %f, want %f", label, got, want)
		}
	}
}
