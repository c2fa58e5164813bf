package ut

import "testing"

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 64, 4096} {
		if !IsPowerOfTwo(n) {
			t.Fatalf("expected %d to be a power of two", n)
		}
	}
	for _, n := range []int{0, -1, 3, 6, 100} {
		if IsPowerOfTwo(n) {
			t.Fatalf("expected %d not to be a power of two", n)
		}
	}
}

func TestPowerUp(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 5: 8, 64: 64, 100: 128}
	for in, want := range cases {
		if got := PowerUp(in); got != want {
			t.Fatalf("PowerUp(%d)=%d, want %d", in, got, want)
		}
	}
}

func TestMinInt(t *testing.T) {
	if got := MinInt(3, 7); got != 3 {
		t.Fatalf("MinInt=%d", got)
	}
	if got := MinInt(7, 3); got != 3 {
		t.Fatalf("MinInt=%d", got)
	}
}

func TestPrintBuf(t *testing.T) {
	got := PrintBuf([]byte{'h', 'i', 0x01})
	want := "len 3; hex 686901; asc hi ;"
	if got != want {
		t.Fatalf("PrintBuf=%q, want %q", got, want)
	}
}
