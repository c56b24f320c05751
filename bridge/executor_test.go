package bridge

import "testing"

func TestInlineRecoversPanics(t *testing.T) {
	_, err := Inline{}.Run(func() (any, error) {
		panic("bad member")
	})
	if err == nil || err.Error() != "bad member" {
		t.Errorf("Run error = %v, want bad member", err)
	}

	got, err := Inline{}.Run(func() (any, error) { return 42, nil })
	if err != nil || got != 42 {
		t.Errorf("Run = %v, %v; want 42", got, err)
	}
}
