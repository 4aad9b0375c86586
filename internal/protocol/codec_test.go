package protocol

import "testing"

func TestEncodeDecodePick(t *testing.T) {
	b, err := Encode(MsgPick, Pick{X: 12.5, Y: 40})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	env, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if env.T != MsgPick {
		t.Fatalf("type = %q", env.T)
	}
	p, err := DecodePayload[Pick](env)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if p.X != 12.5 || p.Y != 40 {
		t.Fatalf("payload = %+v", p)
	}
}

func TestEncodeRejectsEmptyTypeAndNilPayload(t *testing.T) {
	if _, err := Encode("", Pick{}); err == nil {
		t.Fatalf("empty type accepted")
	}
	if _, err := Encode(MsgPick, nil); err == nil {
		t.Fatalf("nil payload accepted")
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	for _, in := range []string{"", "not json", `{"p":{}}`} {
		if _, err := DecodeEnvelope([]byte(in)); err == nil {
			t.Errorf("DecodeEnvelope(%q) succeeded", in)
		}
	}
	if _, err := DecodePayload[Resize](Envelope{T: MsgResize}); err == nil {
		t.Fatalf("empty payload accepted")
	}
}
