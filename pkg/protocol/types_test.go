package protocol

import (
	"testing"
	"time"

	"github.com/ZentaChain/zentalk-mtproto/pkg/tl"
)

func TestGenerateMessageID(t *testing.T) {
	now := time.Unix(1700000000, 123*int64(time.Millisecond))

	id := GenerateMessageID(now, 0)
	if id.Seconds() != 1700000000 {
		t.Errorf("Seconds() = %d, want 1700000000", id.Seconds())
	}
	if !id.FromClient() {
		t.Errorf("id %x is not divisible by 4", int64(id))
	}
	if id.FromServer() {
		t.Error("client id looks like a server id")
	}
	if millis := (int64(id) >> 20) & 0xfff; millis != 123 {
		t.Errorf("millisecond part = %d, want 123", millis)
	}
	if !id.Time().Equal(time.Unix(1700000000, 0)) {
		t.Errorf("Time() = %v", id.Time())
	}
}

func TestGenerateMessageIDOffset(t *testing.T) {
	now := time.Unix(1700000000, 0)

	if got := GenerateMessageID(now, 25).Seconds(); got != 1700000025 {
		t.Errorf("Seconds() with +25 offset = %d", got)
	}
	if got := GenerateMessageID(now, -40).Seconds(); got != 1699999960 {
		t.Errorf("Seconds() with -40 offset = %d", got)
	}
}

func TestGenerateMessageIDUniqueness(t *testing.T) {
	now := time.Now()
	ids := make(map[MessageID]bool)
	count := 1000

	for i := 0; i < count; i++ {
		ids[GenerateMessageID(now, 0)] = true
	}

	// 21 random bits; a handful of collisions in 1000 draws would be suspicious
	if len(ids) < count-5 {
		t.Errorf("GenerateMessageID() produced only %d unique ids out of %d", len(ids), count)
	}
}

func TestMessageIDInWindow(t *testing.T) {
	server := time.Unix(1700000000, 0)

	tests := []struct {
		name string
		sec  int64
		want bool
	}{
		{"now", 1700000000, true},
		{"299s old", 1700000000 - 299, true},
		{"300s old", 1700000000 - 300, false},
		{"29s ahead", 1700000000 + 29, true},
		{"30s ahead", 1700000000 + 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := MessageID(tt.sec<<32 | 1)
			if got := id.InWindow(server); got != tt.want {
				t.Errorf("InWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsContentRelated(t *testing.T) {
	tests := []struct {
		id   uint32
		want bool
	}{
		{tl.MsgsAckID, false},
		{tl.PingID, false},
		{tl.PingDelayDisconnectID, false},
		{tl.MsgContainerID, false},
		{tl.MsgsStateReqID, false},
		{tl.MsgResendReqID, false},
		{tl.RPCResultID, true},
		{0xdeadbeef, true},
	}

	for _, tt := range tests {
		if got := IsContentRelated(tt.id); got != tt.want {
			t.Errorf("IsContentRelated(%08x) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestSeqNo(t *testing.T) {
	counter := int32(0)
	var got []int32

	for _, content := range []bool{true, false, true, true, false} {
		var seq int32
		seq, counter = SeqNo(counter, content)
		got = append(got, seq)
	}

	want := []int32{1, 2, 3, 5, 6}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sequence = %v, want %v", got, want)
		}
	}
}
