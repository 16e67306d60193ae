package sched

import "testing"

// TestCost_Scaling verifies cost scales with ceil(bytes/4096).
func TestCost_Scaling(t *testing.T) {
	tests := []struct {
		name  string
		op    Op
		bytes int64
		want  int64
	}{
		{"read exactly one chunk", OpRead, 4096, NVMeReadCost},
		{"read one byte past a chunk", OpRead, 4097, 2 * NVMeReadCost},
		{"write four chunks exactly", OpWrite, 16384, 4 * NVMeWriteCost},
		{"write one byte", OpWrite, 1, NVMeWriteCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cost(tt.op, tt.bytes)
			if got != tt.want {
				t.Errorf("Cost(%v, %d) = %d, want %d", tt.op, tt.bytes, got, tt.want)
			}
		})
	}
}

func TestCost_NonPositiveBytesReturnsZero(t *testing.T) {
	if got := Cost(OpRead, 0); got != 0 {
		t.Errorf("Cost with 0 bytes = %d, want 0", got)
	}
	if got := Cost(OpWrite, -10); got != 0 {
		t.Errorf("Cost with negative bytes = %d, want 0", got)
	}
}

func TestScaledIOPS_ReadOnlyAndMixed(t *testing.T) {
	t.Run("read-only", func(t *testing.T) {
		got := ScaledIOPS(100_000, 100)
		want := int64(100_000 * NVMeReadCost)
		if got != want {
			t.Errorf("ScaledIOPS(100k, 100) = %d, want %d", got, want)
		}
	})

	t.Run("mixed 50/50", func(t *testing.T) {
		got := ScaledIOPS(100_000, 50)
		want := int64(50_000*NVMeReadCost + 50_000*NVMeWriteCost)
		if got != want {
			t.Errorf("ScaledIOPS(100k, 50) = %d, want %d", got, want)
		}
	})
}
