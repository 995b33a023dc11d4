package scene

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/assetbridge/pkg/native"
)

var errRejected = errors.New("rejected")

var selfFreeingL = func() *native.Layout {
	l := native.NewLayout("selfFreeing")
	l.U32()
	l.Close()
	return l
}()

// selfFreeing fails to encode and then releases its own struct from
// freeNative, so the struct free that follows fails.
type selfFreeing struct {
	at native.Ptr
}

func (s *selfFreeing) nativeLayout() *native.Layout { return selfFreeingL }

func (s *selfFreeing) toNative(_ *Transcoder, at native.Ptr, _ []byte) error {
	s.at = at
	return errRejected
}

func (s *selfFreeing) fromNative(*Transcoder, []byte) error { return nil }

func (s *selfFreeing) freeNative(tc *Transcoder, _ []byte) error {
	return tc.heap.Free(s.at)
}

func TestFailedEncodeLogsReleaseErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h, tc := newTestTranscoder(t, WithLogger(zap.New(core)))

	p, err := ToNative(tc, &selfFreeing{})
	assert.ErrorIs(t, err, errRejected)
	assert.Equal(t, native.Null, p)
	requireNoLeaks(t, h)

	entries := logs.FilterMessage("free struct after failed encode").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "selfFreeing", fields["struct"])
	assert.Contains(t, fields["error"], native.ErrInvalidFree.Error())
}
