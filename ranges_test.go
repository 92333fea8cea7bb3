package facetset

import "testing"

func TestAutoRanges(t *testing.T) {
	tests := []struct {
		name     string
		lower    float64
		upper    float64
		maxItems int
		want     []RangeSpec
	}{
		{
			name: "unit step", lower: 15.1, upper: 19.9, maxItems: 5,
			want: []RangeSpec{
				{Low: 15, High: 16}, {Low: 16, High: 17}, {Low: 17, High: 18},
				{Low: 18, High: 19}, {Low: 19, High: 20},
			},
		},
		{
			name: "tens step", lower: 151, upper: 199, maxItems: 5,
			want: []RangeSpec{
				{Low: 150, High: 160}, {Low: 160, High: 170}, {Low: 170, High: 180},
				{Low: 180, High: 190}, {Low: 190, High: 200},
			},
		},
		{
			name: "fewer buckets than max", lower: 3, upper: 6, maxItems: 5,
			want: []RangeSpec{
				{Low: 3, High: 4}, {Low: 4, High: 5}, {Low: 5, High: 6},
			},
		},
		{
			name: "two buckets", lower: 1, upper: 20, maxItems: 2,
			want: []RangeSpec{
				{Low: 0, High: 10}, {Low: 10, High: 20},
			},
		},
		{
			name: "fractional step", lower: 0.1, upper: 0.45, maxItems: 4,
			want: []RangeSpec{
				{Low: 0.1, High: 0.2}, {Low: 0.2, High: 0.3},
				{Low: 0.3, High: 0.4}, {Low: 0.4, High: 0.5},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := autoRanges(tc.lower, tc.upper, tc.maxItems)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d ranges %v, want %d", len(got), got, len(tc.want))
			}
			for i := range got {
				if got[i].Low != tc.want[i].Low || got[i].High != tc.want[i].High {
					t.Errorf("range %d = (%v, %v), want (%v, %v)",
						i, got[i].Low, got[i].High, tc.want[i].Low, tc.want[i].High)
				}
			}
		})
	}
}

func TestAutoRanges_Degenerate(t *testing.T) {
	if got := autoRanges(5, 5, 4); got != nil {
		t.Errorf("equal bounds: got %v, want nil", got)
	}
	if got := autoRanges(1, 10, 0); got != nil {
		t.Errorf("zero maxItems: got %v, want nil", got)
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		ideal float64
		want  float64
	}{
		{0.96, 1},
		{1.2, 2},
		{3, 5},
		{7, 10},
		{9.5, 10},
		{12, 20},
		{0.034, 0.05},
	}
	for _, tc := range tests {
		if got := niceStep(tc.ideal); got != tc.want {
			t.Errorf("niceStep(%v) = %v, want %v", tc.ideal, got, tc.want)
		}
	}
}
