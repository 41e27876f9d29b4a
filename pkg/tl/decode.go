package tl

import "fmt"

// decoders is filled in init: several constructors decode nested objects
// through DecodeNext, which reads this table.
var decoders map[uint32]func(d *Decoder) Object

func init() {
	decoders = map[uint32]func(d *Decoder) Object{
		ReqPQMultiID:         func(d *Decoder) Object { o := &ReqPQMulti{}; o.decode(d); return o },
		ResPQID:              func(d *Decoder) Object { o := &ResPQ{}; o.decode(d); return o },
		PQInnerDataDCID:      func(d *Decoder) Object { o := &PQInnerData{}; o.decodeFields(d, false); return o },
		PQInnerDataTempDCID:  func(d *Decoder) Object { o := &PQInnerData{}; o.decodeFields(d, true); return o },
		ReqDHParamsID:        func(d *Decoder) Object { o := &ReqDHParams{}; o.decode(d); return o },
		ServerDHParamsOkID:   func(d *Decoder) Object { o := &ServerDHParamsOk{}; o.decode(d); return o },
		ServerDHParamsFailID: func(d *Decoder) Object { o := &ServerDHParamsFail{}; o.decode(d); return o },
		ServerDHInnerDataID:  func(d *Decoder) Object { o := &ServerDHInnerData{}; o.decode(d); return o },
		ClientDHInnerDataID:  func(d *Decoder) Object { o := &ClientDHInnerData{}; o.decode(d); return o },
		SetClientDHParamsID:  func(d *Decoder) Object { o := &SetClientDHParams{}; o.decode(d); return o },
		DhGenOkID:            func(d *Decoder) Object { o := &DhGen{Kind: DhGenOk}; o.decode(d); return o },
		DhGenRetryID:         func(d *Decoder) Object { o := &DhGen{Kind: DhGenRetry}; o.decode(d); return o },
		DhGenFailID:          func(d *Decoder) Object { o := &DhGen{Kind: DhGenFail}; o.decode(d); return o },

		MsgsAckID:             func(d *Decoder) Object { o := &MsgsAck{}; o.decode(d); return o },
		PingID:                func(d *Decoder) Object { o := &Ping{}; o.decode(d); return o },
		PingDelayDisconnectID: func(d *Decoder) Object { o := &PingDelayDisconnect{}; o.decode(d); return o },
		PongID:                func(d *Decoder) Object { o := &Pong{}; o.decode(d); return o },
		RPCResultID:           func(d *Decoder) Object { o := &RPCResult{}; o.decode(d); return o },
		RPCErrorID:            func(d *Decoder) Object { o := &RPCError{}; o.decode(d); return o },
		NewSessionCreatedID:   func(d *Decoder) Object { o := &NewSessionCreated{}; o.decode(d); return o },
		BadMsgNotificationID:  func(d *Decoder) Object { o := &BadMsgNotification{}; o.decodeFields(d, false); return o },
		BadServerSaltID:       func(d *Decoder) Object { o := &BadMsgNotification{}; o.decodeFields(d, true); return o },
		MsgContainerID:        func(d *Decoder) Object { o := &MsgContainer{}; o.decode(d); return o },
		GzipPackedID:          func(d *Decoder) Object { o := &GzipPacked{}; o.decode(d); return o },
		MsgsStateReqID:        func(d *Decoder) Object { o := &MsgsStateReq{}; o.decode(d); return o },
		MsgResendReqID:        func(d *Decoder) Object { o := &MsgResendReq{}; o.decode(d); return o },
	}
}

// Decode reads one boxed object from data. Constructors without a schema
// here come back as *Raw holding all of data.
func Decode(data []byte) (Object, error) {
	d := NewDecoder(data)
	obj := DecodeNext(d)
	if err := d.Err(); err != nil {
		return nil, err
	}
	return obj, nil
}

// DecodeNext reads one boxed object from d and leaves the rest unread.
// Unknown constructors consume everything left.
func DecodeNext(d *Decoder) Object {
	start := d.pos
	id := d.ID()
	if d.err != nil {
		return nil
	}

	fn, ok := decoders[id]
	if !ok {
		raw := &Raw{ID: id, Data: append([]byte(nil), d.buf[start:]...)}
		d.pos = len(d.buf)
		return raw
	}
	return fn(d)
}

// DecodeAs decodes data and checks it is of the wanted type
func DecodeAs[T Object](data []byte) (T, error) {
	var zero T
	obj, err := Decode(data)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %08x", ErrUnexpectedType, obj.TypeID())
	}
	return v, nil
}
