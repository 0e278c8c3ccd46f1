package pagination

import "testing"

func TestNormalizeLimit(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: DefaultLimit},
		{in: -5, want: DefaultLimit},
		{in: 10, want: 10},
		{in: MaxLimit, want: MaxLimit},
		{in: MaxLimit + 1, want: MaxLimit},
	}
	for _, tt := range tests {
		if got := NormalizeLimit(tt.in); got != tt.want {
			t.Fatalf("NormalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize(Params{Limit: -1, Offset: -10})
	if got.Limit != DefaultLimit || got.Offset != 0 {
		t.Fatalf("unexpected normalized params: %+v", got)
	}

	got = Normalize(Params{Limit: 25, Offset: 75})
	if got.Limit != 25 || got.Offset != 75 {
		t.Fatalf("valid params should pass through, got %+v", got)
	}
}
