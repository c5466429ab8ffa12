package pcsc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ebfe/scard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laith43d/nfc-tools/internal/tagerr"
)

type fakeCard struct {
	disconnected bool
}

func (c *fakeCard) Transmit([]byte) ([]byte, error) { return []byte{0x90, 0x00}, nil }

func (c *fakeCard) Disconnect(scard.Disposition) error {
	c.disconnected = true
	return nil
}

type fakeContext struct {
	readers     []string
	listErr     error
	states      []scard.StateFlag
	statusErrs  []error
	connectErrs int
	connects    int
	released    bool
	polls       int
}

func (f *fakeContext) ListReaders() ([]string, error) {
	return f.readers, f.listErr
}

func (f *fakeContext) GetStatusChange(rs []scard.ReaderState, _ time.Duration) error {
	f.polls++
	if len(f.statusErrs) > 0 {
		err := f.statusErrs[0]
		f.statusErrs = f.statusErrs[1:]
		if err != nil {
			return err
		}
	}
	if len(f.states) == 0 {
		return scard.ErrTimeout
	}
	rs[0].EventState = f.states[0]
	f.states = f.states[1:]
	return nil
}

func (f *fakeContext) Connect(string, scard.ShareMode, scard.Protocol) (Card, error) {
	f.connects++
	if f.connects <= f.connectErrs {
		return nil, scard.ErrNoSmartcard
	}
	return &fakeCard{}, nil
}

func (f *fakeContext) Release() error {
	f.released = true
	return nil
}

func open(t *testing.T, f *fakeContext, opts ...Option) *Reader {
	t.Helper()
	opts = append([]Option{
		WithEstablish(func() (Context, error) { return f, nil }),
		WithPollInterval(time.Millisecond),
		WithConnectRetries(3, time.Millisecond),
	}, opts...)
	r, err := Open(opts...)
	require.NoError(t, err)
	return r
}

func TestSelectReader(t *testing.T) {
	t.Parallel()

	readers := []string{"ACS ACR122U PICC Interface 0", "ACS ACR1552 1S CL Reader PICC 0"}

	tests := []struct {
		name    string
		readers []string
		match   string
		want    string
		wantErr error
	}{
		{name: "first by default", readers: readers, want: readers[0]},
		{name: "substring", readers: readers, match: "1552", want: readers[1]},
		{name: "case insensitive", readers: readers, match: "acr122u", want: readers[0]},
		{name: "no match", readers: readers, match: "omnikey", wantErr: tagerr.ErrArgument},
		{name: "no readers", wantErr: ErrNoReader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := SelectReader(tt.readers, tt.match)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	f := &fakeContext{readers: []string{"A", "ACS ACR1552"}}
	r := open(t, f, WithMatch("1552"))
	assert.Equal(t, "ACS ACR1552", r.Name())

	require.NoError(t, r.Close())
	assert.True(t, f.released)
	require.NoError(t, r.Close())
}

func TestOpen_NoReaders(t *testing.T) {
	t.Parallel()

	f := &fakeContext{listErr: scard.ErrNoReadersAvailable}
	_, err := Open(WithEstablish(func() (Context, error) { return f, nil }))
	require.ErrorIs(t, err, ErrNoReader)
	assert.True(t, f.released, "context released when no reader is found")

	_, err = Open(WithEstablish(func() (Context, error) { return nil, errors.New("pcscd not running") }))
	require.EqualError(t, err, "pcscd not running")
}

func TestWaitPresent(t *testing.T) {
	t.Parallel()

	f := &fakeContext{
		readers:    []string{"R"},
		states:     []scard.StateFlag{scard.StateEmpty, scard.StateEmpty | scard.StateChanged, scard.StatePresent | scard.StateChanged},
		statusErrs: []error{errors.New("transient"), nil},
	}
	r := open(t, f)

	require.NoError(t, r.WaitPresent(context.Background()))
	assert.Equal(t, 4, f.polls)
}

func TestWaitRemoval(t *testing.T) {
	t.Parallel()

	f := &fakeContext{
		readers: []string{"R"},
		states:  []scard.StateFlag{scard.StatePresent, scard.StateEmpty | scard.StateChanged},
	}
	r := open(t, f)

	require.NoError(t, r.WaitRemoval(context.Background()))
	assert.Equal(t, 2, f.polls)
}

func TestWait_Cancelled(t *testing.T) {
	t.Parallel()

	r := open(t, &fakeContext{readers: []string{"R"}})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := r.WaitPresent(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestConnect_Retries(t *testing.T) {
	t.Parallel()

	f := &fakeContext{readers: []string{"R"}, connectErrs: 2}
	r := open(t, f)

	card, err := r.Connect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, card)
	assert.Equal(t, 3, f.connects)
}

func TestConnect_GivesUp(t *testing.T) {
	t.Parallel()

	f := &fakeContext{readers: []string{"R"}, connectErrs: 10}
	r := open(t, f)

	_, err := r.Connect(context.Background())
	require.ErrorIs(t, err, tagerr.ErrTransport)
	assert.Contains(t, err.Error(), "connect to R")
	assert.Equal(t, 3, f.connects)
}

func TestRecover(t *testing.T) {
	t.Parallel()

	first := &fakeContext{readers: []string{"old"}}
	second := &fakeContext{readers: []string{"new"}}
	calls := 0
	r, err := Open(WithEstablish(func() (Context, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return second, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "old", r.Name())

	require.NoError(t, r.Recover())
	assert.True(t, first.released)
	assert.Equal(t, "new", r.Name())
}

func TestReleased(t *testing.T) {
	t.Parallel()

	r := open(t, &fakeContext{readers: []string{"R"}})
	require.NoError(t, r.Close())

	require.ErrorIs(t, r.WaitPresent(context.Background()), tagerr.ErrTransport)
	_, err := r.Connect(context.Background())
	require.ErrorIs(t, err, tagerr.ErrTransport)
}
