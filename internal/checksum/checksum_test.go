package checksum

import "testing"

func TestSum_LineEndingsAndTrailingSpace(t *testing.T) {
	lf := Sum([]byte("{\"notebook\": \"home\"}\n"))
	crlf := Sum([]byte("{\"notebook\": \"home\"}\r\n\r\n"))
	if lf != crlf {
		t.Errorf("CRLF and LF sums differ: %s vs %s", lf, crlf)
	}
	if len(lf) != 64 {
		t.Errorf("len = %d, want 64 hex chars", len(lf))
	}
}

func TestSum_ContentChange(t *testing.T) {
	if Sum([]byte("- [ ] a")) == Sum([]byte("- [x] a")) {
		t.Error("different content must produce different sums")
	}
}
