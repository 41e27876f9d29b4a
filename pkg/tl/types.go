package tl

// Constructor ids
const (
	VectorID uint32 = 0x1cb5c415

	// key exchange
	ReqPQMultiID         uint32 = 0xbe7e8ef1
	ResPQID              uint32 = 0x05162463
	PQInnerDataDCID      uint32 = 0xa9f55f95
	PQInnerDataTempDCID  uint32 = 0x56fddf88
	ReqDHParamsID        uint32 = 0xd712e4be
	ServerDHParamsFailID uint32 = 0x79cb045d
	ServerDHParamsOkID   uint32 = 0xd0e8075c
	ServerDHInnerDataID  uint32 = 0xb5890dba
	ClientDHInnerDataID  uint32 = 0x6643b654
	SetClientDHParamsID  uint32 = 0xf5045f1f
	DhGenOkID            uint32 = 0x3bcbf734
	DhGenRetryID         uint32 = 0x46dc1fb9
	DhGenFailID          uint32 = 0xa69dae02

	// service messages
	MsgsAckID             uint32 = 0x62d6b459
	PingID                uint32 = 0x7abe77ec
	PingDelayDisconnectID uint32 = 0xf3427b8c
	PongID                uint32 = 0x347773c5
	RPCResultID           uint32 = 0xf35c6d01
	RPCErrorID            uint32 = 0x2144ca19
	NewSessionCreatedID   uint32 = 0x9ec20908
	BadMsgNotificationID  uint32 = 0xa7eff811
	BadServerSaltID       uint32 = 0xedab447b
	MsgContainerID        uint32 = 0x73f1f8dc
	GzipPackedID          uint32 = 0x3072cfa1
	MsgsStateReqID        uint32 = 0xda69fb52
	MsgResendReqID        uint32 = 0x7d861a08
)

// Object is a boxed TL value
type Object interface {
	TypeID() uint32
	Encode(e *Encoder)
}

// Raw is an already-serialized object, or one this package has no schema for
type Raw struct {
	ID   uint32
	Data []byte // full serialization including the constructor id
}

func (r *Raw) TypeID() uint32 { return r.ID }

func (r *Raw) Encode(e *Encoder) { e.PutRaw(r.Data) }

// NewRaw wraps serialized bytes; the constructor id is read from the first 4 bytes
func NewRaw(data []byte) *Raw {
	id, _ := NewDecoder(data).PeekID()
	return &Raw{ID: id, Data: data}
}

// Marshal serializes o
func Marshal(o Object) []byte {
	e := NewEncoder(64)
	o.Encode(e)
	return e.Buf()
}
