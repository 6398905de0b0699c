package sensor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReadingValue(t *testing.T) {
	r := Reading{Temperature: Float(21.5), Pressure: Float(0)}
	if v, ok := r.Value(Temperature); !ok || v != 21.5 {
		t.Fatalf("temperature: got %v %v", v, ok)
	}
	if v, ok := r.Value(Pressure); !ok || v != 0 {
		t.Fatalf("zero pressure must be present: got %v %v", v, ok)
	}
	if _, ok := r.Value(Humidity); ok {
		t.Fatalf("humidity should be absent")
	}
	if _, ok := r.Value("altitude"); ok {
		t.Fatalf("unknown name should be absent")
	}
}

func TestReadingJSONKeepsAbsentAsNull(t *testing.T) {
	r := Reading{Temperature: Float(25), AmbientLight: Float(950)}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	for _, want := range []string{`"temperature":25`, `"humidity":null`, `"ambient_light":950`, `"pressure":null`} {
		if !strings.Contains(s, want) {
			t.Fatalf("json %s missing %s", s, want)
		}
	}
}

func TestErrorTransient(t *testing.T) {
	base := errors.New("nack")
	err := fmt.Errorf("loop: %w", &Error{Op: "read", Err: base, Transient: true})
	if !IsTransient(err) {
		t.Fatalf("expected transient")
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected unwrap to base error")
	}
	if IsTransient(&Error{Op: "read", Err: base}) {
		t.Fatalf("fatal error reported as transient")
	}
	if IsTransient(base) {
		t.Fatalf("plain error reported as transient")
	}
	if got := (&Error{Op: "read", Err: base}).Error(); got != "sensor read (fatal): nack" {
		t.Fatalf("message: %q", got)
	}
}
