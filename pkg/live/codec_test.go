package live

import (
	"errors"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := &Frame{Type: FrameSet, Key: "PD_FullName", Value: "Jane"}
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if out.Type != FrameSet || out.Key != "PD_FullName" || out.Value != "Jane" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestDecodeSelectFrame(t *testing.T) {
	data, err := Encode(&Frame{Type: FrameSelect, Key: "PD_Employment", Option: "Employed"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	f, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Option != "Employed" {
		t.Errorf("option = %q", f.Option)
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	data, err := Encode(&Frame{Type: "bogus"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, err := Decode(data); !errors.Is(err, ErrUnknownFrame) {
		t.Errorf("err = %v, want ErrUnknownFrame", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xc1}); err == nil {
		t.Error("garbage decoded without error")
	}
}

func TestHelperConstructors(t *testing.T) {
	if f := Progress(67); f.Type != FrameProgress || f.Percent != 67 {
		t.Errorf("Progress = %+v", f)
	}
	if f := SaveState("saving", ""); f.Type != FrameSaveState || f.State != "saving" {
		t.Errorf("SaveState = %+v", f)
	}
	if f := FieldError("PD_FullName", "This field is required."); f.Key != "PD_FullName" {
		t.Errorf("FieldError = %+v", f)
	}
}
