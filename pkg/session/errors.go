package session

import (
	"errors"
	"fmt"

	"github.com/ZentaChain/zentalk-mtproto/pkg/metrics"
)

var (
	ErrIntegrity = errors.New("transport integrity check failed")
	ErrClosed    = errors.New("session closed")
)

// Reasons an inbound encrypted frame is rejected
const (
	ReasonFrameSize   = "frame_size"
	ReasonAuthKeyID   = "auth_key_id"
	ReasonMsgKey      = "msg_key"
	ReasonSessionID   = "session_id"
	ReasonLength      = "length"
	ReasonPadding     = "padding"
	ReasonMsgIDParity = "msg_id_parity"
	ReasonMsgIDTime   = "msg_id_time"
	ReasonMsgIDDup    = "msg_id_duplicate"
)

// IntegrityError rejects an inbound frame. The connection should not trust
// anything else it carries.
type IntegrityError struct {
	Reason string
	Detail string
}

func (e *IntegrityError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("integrity: %s: %s", e.Reason, e.Detail)
	}
	return "integrity: " + e.Reason
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrity
}

func integrity(reason, format string, args ...interface{}) *IntegrityError {
	metrics.IntegrityErrors.WithLabelValues(reason).Inc()
	return &IntegrityError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// RPCError is an rpc_error answer to a call
type RPCError struct {
	Code    int32
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// BadMsgError fails a call the server refused with bad_msg_notification
type BadMsgError struct {
	Code int32
}

func (e *BadMsgError) Error() string {
	return fmt.Sprintf("bad message notification %d: %s", e.Code, badMsgText(e.Code))
}

func badMsgText(code int32) string {
	switch code {
	case 16:
		return "msg_id too low"
	case 17:
		return "msg_id too high"
	case 18:
		return "incorrect two lower order msg_id bits"
	case 19:
		return "container msg_id is the same as msg_id of a previously received message"
	case 20:
		return "message too old"
	case 32:
		return "msg_seqno too low"
	case 33:
		return "msg_seqno too high"
	case 34:
		return "an even msg_seqno expected"
	case 35:
		return "odd msg_seqno expected"
	case 48:
		return "incorrect server salt"
	case 64:
		return "invalid container"
	default:
		return "unknown"
	}
}
