package grpcadapter

import (
	"testing"

	"cgrengine/internal/domain"

	"google.golang.org/grpc/encoding"
)

func TestJSONCodecRoundTrips(t *testing.T) {
	c := encoding.GetCodec(codecName)
	if c == nil {
		t.Fatal("json codec not registered")
	}

	req := AddContactRequest{Contact: ContactMsg{
		From: 1, To: 2, FromTime: 10, ToTime: 20,
		XmitRate: 1000, Confidence: 0.9, Type: domain.Scheduled,
	}}
	data, err := c.Marshal(&req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var out AddContactRequest
	if err := c.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != req {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, req)
	}
}

func TestJSONCodecUnmarshalRejectsGarbage(t *testing.T) {
	c := encoding.GetCodec(codecName)
	var out AddContactRequest
	if err := c.Unmarshal([]byte("not json"), &out); err == nil {
		t.Fatal("expected an error unmarshaling malformed JSON")
	}
}
