package tl

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// MaxUnpackedSize bounds the inflated size of a gzip_packed object
const MaxUnpackedSize = 1 << 24

// MsgsAck acknowledges received content-related messages
type MsgsAck struct {
	MsgIDs []int64
}

func (*MsgsAck) TypeID() uint32 { return MsgsAckID }

func (o *MsgsAck) Encode(e *Encoder) {
	e.PutID(MsgsAckID)
	e.PutVectorLong(o.MsgIDs)
}

func (o *MsgsAck) decode(d *Decoder) {
	o.MsgIDs = d.VectorLong()
}

// Ping asks the server for a pong
type Ping struct {
	PingID int64
}

func (*Ping) TypeID() uint32 { return PingID }

func (o *Ping) Encode(e *Encoder) {
	e.PutID(PingID)
	e.PutLong(o.PingID)
}

func (o *Ping) decode(d *Decoder) {
	o.PingID = d.Long()
}

// PingDelayDisconnect pings and asks the server to close the connection
// after DisconnectDelay seconds without another ping
type PingDelayDisconnect struct {
	PingID          int64
	DisconnectDelay int32
}

func (*PingDelayDisconnect) TypeID() uint32 { return PingDelayDisconnectID }

func (o *PingDelayDisconnect) Encode(e *Encoder) {
	e.PutID(PingDelayDisconnectID)
	e.PutLong(o.PingID)
	e.PutInt(o.DisconnectDelay)
}

func (o *PingDelayDisconnect) decode(d *Decoder) {
	o.PingID = d.Long()
	o.DisconnectDelay = d.Int()
}

// Pong answers a ping; MsgID is the ping's message id
type Pong struct {
	MsgID  int64
	PingID int64
}

func (*Pong) TypeID() uint32 { return PongID }

func (o *Pong) Encode(e *Encoder) {
	e.PutID(PongID)
	e.PutLong(o.MsgID)
	e.PutLong(o.PingID)
}

func (o *Pong) decode(d *Decoder) {
	o.MsgID = d.Long()
	o.PingID = d.Long()
}

// RPCResult answers the call sent with ReqMsgID
type RPCResult struct {
	ReqMsgID int64
	Result   Object
}

func (*RPCResult) TypeID() uint32 { return RPCResultID }

func (o *RPCResult) Encode(e *Encoder) {
	e.PutID(RPCResultID)
	e.PutLong(o.ReqMsgID)
	o.Result.Encode(e)
}

func (o *RPCResult) decode(d *Decoder) {
	o.ReqMsgID = d.Long()
	if d.err != nil {
		return
	}
	rest := d.Remaining()
	d.pos = len(d.buf)
	res, err := Decode(rest)
	if err != nil {
		d.err = err
		return
	}
	o.Result = res
}

// RPCError is the failure result of a call
type RPCError struct {
	Code    int32
	Message string
}

func (*RPCError) TypeID() uint32 { return RPCErrorID }

func (o *RPCError) Encode(e *Encoder) {
	e.PutID(RPCErrorID)
	e.PutInt(o.Code)
	e.PutString(o.Message)
}

func (o *RPCError) decode(d *Decoder) {
	o.Code = d.Int()
	o.Message = string(d.Bytes())
}

// NewSessionCreated tells the client the server created a session
type NewSessionCreated struct {
	FirstMsgID int64
	UniqueID   int64
	ServerSalt int64
}

func (*NewSessionCreated) TypeID() uint32 { return NewSessionCreatedID }

func (o *NewSessionCreated) Encode(e *Encoder) {
	e.PutID(NewSessionCreatedID)
	e.PutLong(o.FirstMsgID)
	e.PutLong(o.UniqueID)
	e.PutLong(o.ServerSalt)
}

func (o *NewSessionCreated) decode(d *Decoder) {
	o.FirstMsgID = d.Long()
	o.UniqueID = d.Long()
	o.ServerSalt = d.Long()
}

// BadMsgNotification rejects a message. A non-nil NewServerSalt marks bad_server_salt.
type BadMsgNotification struct {
	BadMsgID      int64
	BadMsgSeqNo   int32
	ErrorCode     int32
	NewServerSalt *int64
}

func (o *BadMsgNotification) TypeID() uint32 {
	if o.NewServerSalt != nil {
		return BadServerSaltID
	}
	return BadMsgNotificationID
}

func (o *BadMsgNotification) Encode(e *Encoder) {
	e.PutID(o.TypeID())
	e.PutLong(o.BadMsgID)
	e.PutInt(o.BadMsgSeqNo)
	e.PutInt(o.ErrorCode)
	if o.NewServerSalt != nil {
		e.PutLong(*o.NewServerSalt)
	}
}

func (o *BadMsgNotification) decodeFields(d *Decoder, salt bool) {
	o.BadMsgID = d.Long()
	o.BadMsgSeqNo = d.Int()
	o.ErrorCode = d.Int()
	if salt {
		s := d.Long()
		o.NewServerSalt = &s
	}
}

// Message is one entry of a msg_container
type Message struct {
	MsgID int64
	SeqNo int32
	Body  Object
}

// MsgContainer bundles several messages in one frame
type MsgContainer struct {
	Messages []Message
}

func (*MsgContainer) TypeID() uint32 { return MsgContainerID }

func (o *MsgContainer) Encode(e *Encoder) {
	e.PutID(MsgContainerID)
	e.PutInt(int32(len(o.Messages)))
	for _, m := range o.Messages {
		body := Marshal(m.Body)
		e.PutLong(m.MsgID)
		e.PutInt(m.SeqNo)
		e.PutInt(int32(len(body)))
		e.PutRaw(body)
	}
}

func (o *MsgContainer) decode(d *Decoder) {
	n := d.Int()
	if d.err != nil {
		return
	}
	if n < 0 || int(n) > len(d.Remaining())/16 {
		d.err = fmt.Errorf("%w: container of %d messages", ErrUnexpectedEOF, n)
		return
	}
	o.Messages = make([]Message, 0, n)
	for i := int32(0); i < n; i++ {
		var m Message
		m.MsgID = d.Long()
		m.SeqNo = d.Int()
		size := d.Int()
		body := d.Raw(int(size))
		if d.err != nil {
			return
		}
		obj, err := Decode(body)
		if err != nil {
			d.err = fmt.Errorf("failed to decode container message %d: %w", i, err)
			return
		}
		m.Body = obj
		o.Messages = append(o.Messages, m)
	}
}

// GzipPacked wraps a gzip-compressed serialized object
type GzipPacked struct {
	PackedData []byte
}

func (*GzipPacked) TypeID() uint32 { return GzipPackedID }

func (o *GzipPacked) Encode(e *Encoder) {
	e.PutID(GzipPackedID)
	e.PutBytes(o.PackedData)
}

func (o *GzipPacked) decode(d *Decoder) {
	o.PackedData = d.Bytes()
}

// Unpack decompresses and decodes the packed object
func (o *GzipPacked) Unpack() (Object, error) {
	zr, err := gzip.NewReader(bytes.NewReader(o.PackedData))
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip_packed: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(io.LimitReader(zr, MaxUnpackedSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to inflate gzip_packed: %w", err)
	}
	if len(data) > MaxUnpackedSize {
		return nil, fmt.Errorf("%w: gzip_packed inflates past %d bytes", ErrTooLong, MaxUnpackedSize)
	}
	return Decode(data)
}

// Pack compresses o into a GzipPacked
func Pack(o Object) (*GzipPacked, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(Marshal(o)); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return &GzipPacked{PackedData: buf.Bytes()}, nil
}

// MsgsStateReq asks for the state of sent messages
type MsgsStateReq struct {
	MsgIDs []int64
}

func (*MsgsStateReq) TypeID() uint32 { return MsgsStateReqID }

func (o *MsgsStateReq) Encode(e *Encoder) {
	e.PutID(MsgsStateReqID)
	e.PutVectorLong(o.MsgIDs)
}

func (o *MsgsStateReq) decode(d *Decoder) {
	o.MsgIDs = d.VectorLong()
}

// MsgResendReq asks the peer to resend messages
type MsgResendReq struct {
	MsgIDs []int64
}

func (*MsgResendReq) TypeID() uint32 { return MsgResendReqID }

func (o *MsgResendReq) Encode(e *Encoder) {
	e.PutID(MsgResendReqID)
	e.PutVectorLong(o.MsgIDs)
}

func (o *MsgResendReq) decode(d *Decoder) {
	o.MsgIDs = d.VectorLong()
}
