package diagnostic

import "testing"

func TestDiagnostics_HasErrorsOnlyCountsErrors(t *testing.T) {
	d := New()
	d.Warningf(1, 1, "a warning")
	if d.HasErrors() {
		t.Fatal("a warning alone should not count as an error")
	}
	d.Errorf(2, 3, "something went wrong")
	if !d.HasErrors() {
		t.Fatal("expected HasErrors to be true after Errorf")
	}
	if d.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d, want 1", d.ErrorCount())
	}
}

func TestDiagnostics_FormatIncludesHint(t *testing.T) {
	d := New()
	d.ErrorWithHint(4, 2, "unexpected token", "did you forget a closing delimiter?")
	got := d.Format("input")
	want := "error[input:4:2]: unexpected token\n  hint: did you forget a closing delimiter?"
	if got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}
}

func TestDiagnostics_Clear(t *testing.T) {
	d := New()
	d.Errorf(1, 1, "x")
	d.Clear()
	if d.Count() != 0 {
		t.Errorf("Count after Clear = %d, want 0", d.Count())
	}
}
