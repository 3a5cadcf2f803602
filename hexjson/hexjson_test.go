package hexjson_test

import (
	"testing"

	"github.com/driphttp/drip/hexjson"
)

func TestFingerprint(t *testing.T) {
	t.Run("uses only the first four bytes", func(t *testing.T) {
		head := []byte{0xC4, 0x23, 0x60, 0xD7}
		short := hexjson.Fingerprint(head)
		long := hexjson.Fingerprint(append(append([]byte(nil), head...), 0xDE, 0xAD, 0xBE, 0xEF))
		if short != "0xC42360D7" {
			t.Fatalf("unexpected fingerprint: %q", short)
		}
		if long != short {
			t.Fatalf("tail leaked into fingerprint: %q vs %q", long, short)
		}
	})

	t.Run("shorter sequences use what they have", func(t *testing.T) {
		if got := hexjson.Fingerprint([]byte{0x0A}); got != "0x0A" {
			t.Fatalf("unexpected fingerprint: %q", got)
		}
		if got := hexjson.Fingerprint(nil); got != "0x" {
			t.Fatalf("unexpected empty fingerprint: %q", got)
		}
	})
}

func TestMarshal(t *testing.T) {
	t.Run("plain JSON values pass through", func(t *testing.T) {
		b, err := hexjson.Marshal(map[string]any{"success": true})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if got := string(b); got != `{"success":true}` {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("byte sequences become fingerprints", func(t *testing.T) {
		payload := make([]byte, 32)
		copy(payload, []byte{0xC4, 0x23, 0x60, 0xD7})
		b, err := hexjson.Marshal(map[string]any{"my-bytes": payload})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if got := string(b); got != `{"my-bytes":"0xC42360D7"}` {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("rule applies at any nesting depth", func(t *testing.T) {
		v := map[string]any{
			"outer": []any{
				map[string]any{"digest": []byte{0x01, 0x02, 0x03, 0x04, 0x05}},
			},
		}
		b, err := hexjson.Marshal(v)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if got := string(b); got != `{"outer":[{"digest":"0x01020304"}]}` {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("struct fields honor json tags", func(t *testing.T) {
		type report struct {
			Name   string `json:"name"`
			Digest []byte `json:"digest"`
			Note   string `json:"note,omitempty"`
		}
		b, err := hexjson.Marshal(report{Name: "r1", Digest: []byte{0xAB, 0xCD}})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if got := string(b); got != `{"digest":"0xABCD","name":"r1"}` {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("byte arrays and named byte slices", func(t *testing.T) {
		type digest [4]byte
		type blob []byte
		b, err := hexjson.Marshal(map[string]any{
			"arr":  digest{0xDE, 0xAD, 0xBE, 0xEF},
			"blob": blob{0x00, 0xFF},
		})
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if got := string(b); got != `{"arr":"0xDEADBEEF","blob":"0x00FF"}` {
			t.Fatalf("unexpected encoding: %s", got)
		}
	})

	t.Run("nil and scalars", func(t *testing.T) {
		for in, want := range map[any]string{
			nil:     "null",
			"hi":    `"hi"`,
			int(42): "42",
			true:    "true",
		} {
			b, err := hexjson.Marshal(in)
			if err != nil {
				t.Fatalf("marshal %v: %v", in, err)
			}
			if string(b) != want {
				t.Fatalf("marshal %v: want %s got %s", in, want, b)
			}
		}
	})

	t.Run("cyclic values fail instead of recursing forever", func(t *testing.T) {
		type node struct {
			Next *node `json:"next"`
		}
		n := &node{}
		n.Next = n
		if _, err := hexjson.Marshal(n); err == nil {
			t.Fatalf("expected error for cyclic value")
		}
	})
}
