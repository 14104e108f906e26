package capture

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCamera struct {
	openErr error
	opens   int
	closes  int
	grabs   int
}

func (f *fakeCamera) Open() error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	return nil
}

func (f *fakeCamera) Close() error {
	f.closes++
	return nil
}

func (f *fakeCamera) Grab() ([]byte, error) {
	f.grabs++
	return []byte{0xff, 0xd8}, nil
}

func TestCamera_PermissionDeniedThenRetry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dev := &fakeCamera{openErr: ErrPermissionDenied}
	cam := NewCamera("scan", dev, logger)

	err := cam.Start()
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, StateInactive, cam.State())
	assert.ErrorIs(t, cam.LastError(), ErrPermissionDenied)

	_, err = cam.Frame()
	assert.ErrorIs(t, err, ErrNoActiveStream)
	assert.Equal(t, 0, dev.grabs)

	dev.openErr = nil
	require.NoError(t, cam.Retry())
	assert.Equal(t, StateActive, cam.State())
	assert.NoError(t, cam.LastError())

	frame, err := cam.Frame()
	require.NoError(t, err)
	assert.NotEmpty(t, frame)
}

func TestSession_StartReleasesHeldDevice(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dev := &fakeCamera{}
	s := NewSession("preview", dev, logger)

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())

	assert.Equal(t, 2, dev.opens)
	assert.Equal(t, 1, dev.closes)
}

func TestSession_StopIsIdempotent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	dev := &fakeCamera{}
	s := NewSession("preview", dev, logger)

	require.NoError(t, s.Start())
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	assert.Equal(t, 1, dev.closes)
	assert.False(t, s.Active())
}

func TestSession_DoSkipsWhenInactive(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := NewSession("preview", &fakeCamera{}, logger)

	called := false
	err := s.Do(func() error {
		called = true
		return errors.New("unreachable")
	})
	assert.ErrorIs(t, err, ErrNoActiveStream)
	assert.False(t, called)
}
