package ladder

import "testing"

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		values  []float64
		wantErr bool
	}{
		{name: "three levels", values: []float64{0.0, 0.5, 1.0}},
		{name: "single level", values: []float64{1.0}},
		{name: "empty", values: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.values)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if l.Len() != len(tt.values) {
				t.Errorf("Len() = %d, want %d", l.Len(), len(tt.values))
			}
			for i, v := range tt.values {
				if l.Value(i) != v {
					t.Errorf("Value(%d) = %f, want %f", i, l.Value(i), v)
				}
			}
		})
	}
}

func TestValuesIsACopy(t *testing.T) {
	src := []float64{0.0, 0.5, 1.0}
	l, err := New(src)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Mutating the input or the returned slice must not affect the ladder.
	src[0] = 99
	vs := l.Values()
	vs[1] = 99

	if l.Value(0) != 0.0 || l.Value(1) != 0.5 {
		t.Errorf("ladder mutated through shared slice: %v", l.Values())
	}
}
