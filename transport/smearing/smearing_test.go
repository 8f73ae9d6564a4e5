package smearing

import (
	"errors"
	"math"
	"testing"

	"github.com/cwbudde/algo-btp/units"
)

func TestParse(t *testing.T) {
	tests := []struct {
		spec string
		want Kernel
	}{
		{"gaussian:0.02 eV", Kernel{TypeGaussian, 0.02 / units.HartreeEV}},
		{"Gaussian : 1e-3 Ha", Kernel{TypeGaussian, 1e-3}},
		{"lorentzian:0.01", Kernel{TypeLorentzian, 0.01}},
		{"histogram", Kernel{Type: TypeHistogram}},
	}
	for _, tt := range tests {
		got, err := Parse(tt.spec)
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tt.spec, err)
		}
		if got.Type != tt.want.Type || math.Abs(got.Width-tt.want.Width) > 1e-15 {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.spec, got, tt.want)
		}
	}

	if got := Default(); got.Type != TypeGaussian {
		t.Errorf("Default() = %v", got)
	}
	if k, err := Parse(DefaultSpec); err != nil || k != Default() {
		t.Errorf("Parse(DefaultSpec) = %v, %v; want Default()", k, err)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse("boxcar:1"); !errors.Is(err, ErrUnknownType) {
		t.Errorf("expected ErrUnknownType, got %v", err)
	}
	if _, err := Parse("gaussian"); !errors.Is(err, ErrBadSpec) {
		t.Errorf("expected ErrBadSpec, got %v", err)
	}
	if _, err := Parse("gaussian:-1 eV"); err == nil {
		t.Error("expected error for negative width")
	}
}

func TestStringRoundTrip(t *testing.T) {
	k := Kernel{TypeLorentzian, 0.004}
	got, err := Parse(k.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != k {
		t.Fatalf("Parse(String()) = %+v, want %+v", got, k)
	}
}

func TestDiscretize(t *testing.T) {
	for _, k := range []Kernel{{TypeGaussian, 0.02}, {TypeLorentzian, 0.01}} {
		w, err := k.Discretize(0.005)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", k, err)
		}
		if len(w)%2 != 1 {
			t.Fatalf("%v: even length %d", k, len(w))
		}
		var sum float64
		for i, v := range w {
			sum += v
			if mirror := w[len(w)-1-i]; math.Abs(v-mirror) > 1e-15 {
				t.Fatalf("%v: not symmetric at %d", k, i)
			}
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("%v: sum = %v, want 1", k, sum)
		}
		if w[len(w)/2] < w[0] {
			t.Fatalf("%v: peak is not at the centre", k)
		}
	}

	w, err := Kernel{Type: TypeGaussian, Width: 0.02}.Discretize(0.01, WithCutoff(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w) != 13 {
		t.Fatalf("len = %d, want 13 for a 3-sigma cutoff", len(w))
	}

	if w, _ := (Kernel{Type: TypeHistogram}).Discretize(0.1); len(w) != 1 || w[0] != 1 {
		t.Fatalf("histogram kernel = %v, want [1]", w)
	}
	if _, err := (Kernel{TypeGaussian, 0.01}).Discretize(0); err == nil {
		t.Fatal("expected error for zero spacing")
	}
}
