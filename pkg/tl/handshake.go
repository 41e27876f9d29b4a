package tl

// ReqPQMulti starts the key exchange
type ReqPQMulti struct {
	Nonce Int128
}

func (*ReqPQMulti) TypeID() uint32 { return ReqPQMultiID }

func (o *ReqPQMulti) Encode(e *Encoder) {
	e.PutID(ReqPQMultiID)
	e.PutInt128(o.Nonce)
}

func (o *ReqPQMulti) decode(d *Decoder) {
	o.Nonce = d.Int128()
}

// ResPQ carries the server nonce, pq and the server's key fingerprints
type ResPQ struct {
	Nonce        Int128
	ServerNonce  Int128
	PQ           []byte
	Fingerprints []uint64
}

func (*ResPQ) TypeID() uint32 { return ResPQID }

func (o *ResPQ) Encode(e *Encoder) {
	e.PutID(ResPQID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutBytes(o.PQ)
	fps := make([]int64, len(o.Fingerprints))
	for i, fp := range o.Fingerprints {
		fps[i] = int64(fp)
	}
	e.PutVectorLong(fps)
}

func (o *ResPQ) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.PQ = d.Bytes()
	fps := d.VectorLong()
	o.Fingerprints = make([]uint64, len(fps))
	for i, fp := range fps {
		o.Fingerprints[i] = uint64(fp)
	}
}

// PQInnerData is the RSA-encrypted payload of req_DH_params.
// A non-zero ExpiresIn selects the temporary key variant.
type PQInnerData struct {
	PQ          []byte
	P           []byte
	Q           []byte
	Nonce       Int128
	ServerNonce Int128
	NewNonce    Int256
	DC          int32
	ExpiresIn   int32
}

func (o *PQInnerData) TypeID() uint32 {
	if o.ExpiresIn != 0 {
		return PQInnerDataTempDCID
	}
	return PQInnerDataDCID
}

func (o *PQInnerData) Encode(e *Encoder) {
	e.PutID(o.TypeID())
	e.PutBytes(o.PQ)
	e.PutBytes(o.P)
	e.PutBytes(o.Q)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutInt256(o.NewNonce)
	e.PutInt(o.DC)
	if o.ExpiresIn != 0 {
		e.PutInt(o.ExpiresIn)
	}
}

func (o *PQInnerData) decodeFields(d *Decoder, temp bool) {
	o.PQ = d.Bytes()
	o.P = d.Bytes()
	o.Q = d.Bytes()
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.NewNonce = d.Int256()
	o.DC = d.Int()
	if temp {
		o.ExpiresIn = d.Int()
	}
}

// ReqDHParams sends the RSA-encrypted inner data
type ReqDHParams struct {
	Nonce                Int128
	ServerNonce          Int128
	P                    []byte
	Q                    []byte
	PublicKeyFingerprint uint64
	EncryptedData        []byte
}

func (*ReqDHParams) TypeID() uint32 { return ReqDHParamsID }

func (o *ReqDHParams) Encode(e *Encoder) {
	e.PutID(ReqDHParamsID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutBytes(o.P)
	e.PutBytes(o.Q)
	e.PutLong(int64(o.PublicKeyFingerprint))
	e.PutBytes(o.EncryptedData)
}

func (o *ReqDHParams) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.P = d.Bytes()
	o.Q = d.Bytes()
	o.PublicKeyFingerprint = uint64(d.Long())
	o.EncryptedData = d.Bytes()
}

// ServerDHParamsOk carries the IGE-encrypted server_DH_inner_data
type ServerDHParamsOk struct {
	Nonce           Int128
	ServerNonce     Int128
	EncryptedAnswer []byte
}

func (*ServerDHParamsOk) TypeID() uint32 { return ServerDHParamsOkID }

func (o *ServerDHParamsOk) Encode(e *Encoder) {
	e.PutID(ServerDHParamsOkID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutBytes(o.EncryptedAnswer)
}

func (o *ServerDHParamsOk) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.EncryptedAnswer = d.Bytes()
}

// ServerDHParamsFail rejects req_DH_params
type ServerDHParamsFail struct {
	Nonce        Int128
	ServerNonce  Int128
	NewNonceHash Int128
}

func (*ServerDHParamsFail) TypeID() uint32 { return ServerDHParamsFailID }

func (o *ServerDHParamsFail) Encode(e *Encoder) {
	e.PutID(ServerDHParamsFailID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutInt128(o.NewNonceHash)
}

func (o *ServerDHParamsFail) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.NewNonceHash = d.Int128()
}

// ServerDHInnerData holds the server's DH parameters
type ServerDHInnerData struct {
	Nonce       Int128
	ServerNonce Int128
	G           int32
	DHPrime     []byte
	GA          []byte
	ServerTime  int32
}

func (*ServerDHInnerData) TypeID() uint32 { return ServerDHInnerDataID }

func (o *ServerDHInnerData) Encode(e *Encoder) {
	e.PutID(ServerDHInnerDataID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutInt(o.G)
	e.PutBytes(o.DHPrime)
	e.PutBytes(o.GA)
	e.PutInt(o.ServerTime)
}

func (o *ServerDHInnerData) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.G = d.Int()
	o.DHPrime = d.Bytes()
	o.GA = d.Bytes()
	o.ServerTime = d.Int()
}

// ClientDHInnerData holds this side's DH public value
type ClientDHInnerData struct {
	Nonce       Int128
	ServerNonce Int128
	RetryID     int64
	GB          []byte
}

func (*ClientDHInnerData) TypeID() uint32 { return ClientDHInnerDataID }

func (o *ClientDHInnerData) Encode(e *Encoder) {
	e.PutID(ClientDHInnerDataID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutLong(o.RetryID)
	e.PutBytes(o.GB)
}

func (o *ClientDHInnerData) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.RetryID = d.Long()
	o.GB = d.Bytes()
}

// SetClientDHParams sends the encrypted client_DH_inner_data
type SetClientDHParams struct {
	Nonce         Int128
	ServerNonce   Int128
	EncryptedData []byte
}

func (*SetClientDHParams) TypeID() uint32 { return SetClientDHParamsID }

func (o *SetClientDHParams) Encode(e *Encoder) {
	e.PutID(SetClientDHParamsID)
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutBytes(o.EncryptedData)
}

func (o *SetClientDHParams) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.EncryptedData = d.Bytes()
}

// DhGenKind distinguishes the three answers to set_client_DH_params
type DhGenKind byte

const (
	DhGenOk    DhGenKind = 1
	DhGenRetry DhGenKind = 2
	DhGenFail  DhGenKind = 3
)

func (k DhGenKind) String() string {
	switch k {
	case DhGenOk:
		return "dh_gen_ok"
	case DhGenRetry:
		return "dh_gen_retry"
	case DhGenFail:
		return "dh_gen_fail"
	default:
		return "dh_gen_unknown"
	}
}

// DhGen is dh_gen_ok, dh_gen_retry or dh_gen_fail; Kind is also the nonce hash tag
type DhGen struct {
	Kind         DhGenKind
	Nonce        Int128
	ServerNonce  Int128
	NewNonceHash Int128
}

func (o *DhGen) TypeID() uint32 {
	switch o.Kind {
	case DhGenRetry:
		return DhGenRetryID
	case DhGenFail:
		return DhGenFailID
	default:
		return DhGenOkID
	}
}

func (o *DhGen) Encode(e *Encoder) {
	e.PutID(o.TypeID())
	e.PutInt128(o.Nonce)
	e.PutInt128(o.ServerNonce)
	e.PutInt128(o.NewNonceHash)
}

func (o *DhGen) decode(d *Decoder) {
	o.Nonce = d.Int128()
	o.ServerNonce = d.Int128()
	o.NewNonceHash = d.Int128()
}
