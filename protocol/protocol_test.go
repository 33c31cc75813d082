package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestSessionRequestRoundTrip(t *testing.T) {
	last := uint32(5)
	pid := "perm-1"
	req := SessionRequest{
		Kind:         ReqApprove,
		Last:         &last,
		AgentOnly:    true,
		PermissionID: &pid,
		All:          true,
		Choice:       ChoiceAllowOnce,
	}

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got SessionRequest
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Kind != req.Kind || got.AgentOnly != req.AgentOnly || got.All != req.All || got.Choice != req.Choice {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, req)
	}
	if *got.Last != *req.Last || *got.PermissionID != *req.PermissionID {
		t.Fatalf("round trip mismatch on pointer fields: got %+v, want %+v", got, req)
	}
}

func TestSessionResponseRoundTrip(t *testing.T) {
	resp := SessionResponse{
		Kind: ReqGetOutput,
		Ok:   true,
		Output: []OutputEntryWire{
			{Sequence: 1, Kind: "agent_message", Text: "hi", Timestamp: "2024-01-01T00:00:00Z"},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got SessionResponse
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(got.Output) != 1 || got.Output[0].Text != "hi" {
		t.Fatalf("round trip mismatch: got %+v", got)
	}
}

func TestFramerRoundTrip(t *testing.T) {
	buf := &bytes.Buffer{}
	f := NewFramer(buf)

	if err := f.WriteResponse(Ack(ReqCancel)); err != nil {
		t.Fatalf("write: %v", err)
	}

	read := NewFramer(buf)
	line, err := read.readLine()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp SessionResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Kind != ReqCancel || !resp.Ok {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestFramerRejectsMalformedJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString("{not json\n")
	f := NewFramer(buf)
	if _, err := f.ReadRequest(); err == nil {
		t.Fatal("expected error decoding malformed request")
	}
}

func TestFramerRejectsOversizedLine(t *testing.T) {
	buf := &bytes.Buffer{}
	buf.WriteString(strings.Repeat("a", MaxLineSize+10) + "\n")
	f := NewFramer(buf)
	if _, err := f.ReadRequest(); err == nil {
		t.Fatal("expected error on oversized line")
	}
}
