package protocol

import (
	"bytes"
	"testing"

	"github.com/aalyth/lunaris-go/internal/value"
)

func TestSendRecvRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := Request{SQL: "SELECT * FROM t"}
	if err := SendMessage(&buf, req); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	var got Request
	ok, err := RecvMessage(&buf, &got)
	if err != nil {
		t.Fatalf("RecvMessage: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true for a full frame")
	}
	if got.SQL != req.SQL {
		t.Fatalf("round trip mismatch: got %q, want %q", got.SQL, req.SQL)
	}
}

func TestRecvMessageCleanEOF(t *testing.T) {
	var buf bytes.Buffer
	var dst Request
	ok, err := RecvMessage(&buf, &dst)
	if err != nil {
		t.Fatalf("expected nil error on clean EOF, got %v", err)
	}
	if ok {
		t.Fatal("expected ok=false on clean EOF")
	}
}

func TestOkResponseAndErrResponse(t *testing.T) {
	rs := &ResultSet{Columns: []string{"id"}, Rows: [][]value.Value{{value.NewInteger(1)}}}
	ok := OkResponse("1 row(s) returned", rs)
	if ok.Ok == nil || ok.Error != nil {
		t.Fatalf("OkResponse should set Ok and leave Error nil: %+v", ok)
	}
	if ok.Ok.ResultSet.Columns[0] != "id" {
		t.Fatalf("unexpected result set: %+v", ok.Ok.ResultSet)
	}

	errResp := ErrResponse("boom")
	if errResp.Error == nil || errResp.Ok != nil {
		t.Fatalf("ErrResponse should set Error and leave Ok nil: %+v", errResp)
	}
	if errResp.Error.Message != "boom" {
		t.Fatalf("unexpected error message: %q", errResp.Error.Message)
	}
}

func TestResponseJSONRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	resp := OkResponse("OK", nil)
	if err := SendMessage(&buf, resp); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	var got Response
	ok, err := RecvMessage(&buf, &got)
	if err != nil || !ok {
		t.Fatalf("RecvMessage: ok=%v err=%v", ok, err)
	}
	if got.Ok == nil || got.Ok.Message != "OK" || got.Ok.ResultSet != nil {
		t.Fatalf("unexpected round trip: %+v", got)
	}
}
