package tl

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func TestRPCResultNested(t *testing.T) {
	in := &RPCResult{ReqMsgID: 42, Result: &RPCError{Code: 420, Message: "FLOOD_WAIT_3"}}

	out, err := DecodeAs[*RPCResult](Marshal(in))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if out.ReqMsgID != 42 {
		t.Errorf("ReqMsgID = %d, want 42", out.ReqMsgID)
	}
	rpcErr, ok := out.Result.(*RPCError)
	if !ok {
		t.Fatalf("Result = %T, want *RPCError", out.Result)
	}
	if rpcErr.Code != 420 || rpcErr.Message != "FLOOD_WAIT_3" {
		t.Errorf("RPCError = %+v", rpcErr)
	}
}

func TestRPCResultWrappingContainer(t *testing.T) {
	in := &RPCResult{ReqMsgID: 7, Result: &MsgContainer{Messages: []Message{
		{MsgID: 5, SeqNo: 1, Body: &RPCResult{ReqMsgID: 4, Result: &Pong{MsgID: 4, PingID: 1}}},
		{MsgID: 9, SeqNo: 2, Body: &MsgsAck{MsgIDs: []int64{4}}},
	}}}

	out, err := DecodeAs[*RPCResult](Marshal(in))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	c, ok := out.Result.(*MsgContainer)
	if !ok || len(c.Messages) != 2 {
		t.Fatalf("Result = %#v, want container of 2", out.Result)
	}
	inner, ok := c.Messages[0].Body.(*RPCResult)
	if !ok || inner.ReqMsgID != 4 {
		t.Fatalf("Messages[0] = %#v, want rpc_result for 4", c.Messages[0].Body)
	}
	if pong, ok := inner.Result.(*Pong); !ok || pong.PingID != 1 {
		t.Errorf("inner result = %#v, want pong 1", inner.Result)
	}
	if _, ok := c.Messages[1].Body.(*MsgsAck); !ok {
		t.Errorf("Messages[1] = %T, want *MsgsAck", c.Messages[1].Body)
	}
}

func TestMsgContainer(t *testing.T) {
	salt := int64(0x1122334455667788)
	in := &MsgContainer{Messages: []Message{
		{MsgID: 5, SeqNo: 1, Body: &Pong{MsgID: 4, PingID: 9}},
		{MsgID: 9, SeqNo: 2, Body: &MsgsAck{MsgIDs: []int64{1, 2}}},
		{MsgID: 13, SeqNo: 3, Body: &BadMsgNotification{BadMsgID: 4, ErrorCode: 48, NewServerSalt: &salt}},
	}}

	out, err := DecodeAs[*MsgContainer](Marshal(in))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(out.Messages))
	}

	if pong, ok := out.Messages[0].Body.(*Pong); !ok || pong.PingID != 9 {
		t.Errorf("Messages[0] = %#v, want pong 9", out.Messages[0].Body)
	}
	if ack, ok := out.Messages[1].Body.(*MsgsAck); !ok || len(ack.MsgIDs) != 2 {
		t.Errorf("Messages[1] = %#v, want msgs_ack", out.Messages[1].Body)
	}
	bad, ok := out.Messages[2].Body.(*BadMsgNotification)
	if !ok || bad.NewServerSalt == nil || *bad.NewServerSalt != salt {
		t.Errorf("Messages[2] = %#v, want bad_server_salt", out.Messages[2].Body)
	}
	if out.Messages[2].MsgID != 13 || out.Messages[2].SeqNo != 3 {
		t.Errorf("Messages[2] header = %d/%d", out.Messages[2].MsgID, out.Messages[2].SeqNo)
	}
}

func TestMsgContainerTruncated(t *testing.T) {
	data := Marshal(&MsgContainer{Messages: []Message{{MsgID: 1, Body: &Ping{PingID: 1}}}})

	if _, err := Decode(data[:len(data)-4]); !errors.Is(err, ErrUnexpectedEOF) {
		t.Errorf("Decode(truncated) error = %v, want ErrUnexpectedEOF", err)
	}
}

func TestGzipPacked(t *testing.T) {
	packed, err := Pack(&NewSessionCreated{FirstMsgID: 1, UniqueID: 2, ServerSalt: 3})
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}

	out, err := DecodeAs[*GzipPacked](Marshal(packed))
	if err != nil {
		t.Fatalf("DecodeAs() error = %v", err)
	}
	obj, err := out.Unpack()
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	created, ok := obj.(*NewSessionCreated)
	if !ok || created.ServerSalt != 3 {
		t.Errorf("Unpack() = %#v, want new_session_created", obj)
	}

	bad := &GzipPacked{PackedData: []byte("not gzip")}
	if _, err := bad.Unpack(); err == nil {
		t.Error("Unpack() should fail on garbage")
	}
}

func TestGzipPackedSizeLimit(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(make([]byte, MaxUnpackedSize+16)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	bomb := &GzipPacked{PackedData: buf.Bytes()}
	if _, err := bomb.Unpack(); !errors.Is(err, ErrTooLong) {
		t.Errorf("Unpack() error = %v, want ErrTooLong", err)
	}
}

func TestBadMsgNotificationTypeID(t *testing.T) {
	n := &BadMsgNotification{ErrorCode: 16}
	if n.TypeID() != BadMsgNotificationID {
		t.Errorf("TypeID() = %08x, want bad_msg_notification", n.TypeID())
	}
	salt := int64(1)
	n.NewServerSalt = &salt
	if n.TypeID() != BadServerSaltID {
		t.Errorf("TypeID() = %08x, want bad_server_salt", n.TypeID())
	}
}
