// Package session frames calls for the wire before and after an auth key
// exists and matches responses to the calls waiting for them.
package session

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

// Framer turns calls into frames and frames into objects
type Framer interface {
	Send(ctx context.Context, req tl.Object) (*Pending, error)
	Receive(frame []byte) (tl.Object, error)
}

// FrameWriter sends one frame
type FrameWriter interface {
	WriteFrame(ctx context.Context, frame []byte) error
}

// FrameReader receives one frame
type FrameReader interface {
	ReadFrame(ctx context.Context) ([]byte, error)
}

// FrameReadWriter is a framed connection
type FrameReadWriter interface {
	FrameReader
	FrameWriter
}

// Options configure a framer. Zero values take defaults.
type Options struct {
	Log    logrus.FieldLogger
	Rand   io.Reader
	OnPush func(obj tl.Object)
}

func (o Options) logger() logrus.FieldLogger {
	if o.Log != nil {
		return o.Log
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
