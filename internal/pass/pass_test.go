package pass

import "testing"

func TestOutcomeString(t *testing.T) {
	if OK.String() != "OK" {
		t.Errorf("OK.String() = %q, want OK", OK.String())
	}
	if Stop.String() != "STOP" {
		t.Errorf("Stop.String() = %q, want STOP", Stop.String())
	}
}

func TestDescriptorWithSeq(t *testing.T) {
	d := Descriptor{Name: "lines", Arg: "0"}
	if d.Seq() != 0 {
		t.Errorf("zero-value Seq() = %d, want 0", d.Seq())
	}

	d2 := d.WithSeq(5)
	if d2.Seq() != 5 {
		t.Errorf("WithSeq(5).Seq() = %d, want 5", d2.Seq())
	}
	if d.Seq() != 0 {
		t.Errorf("WithSeq mutated the receiver; original Seq() = %d, want 0", d.Seq())
	}
}

func TestPriOf(t *testing.T) {
	p := PriOf(42)
	if p == nil || *p != 42 {
		t.Errorf("PriOf(42) = %v, want pointer to 42", p)
	}
}
