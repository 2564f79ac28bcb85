package netjoin

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	upAfter    int32
	checks     atomic.Int32
	connects   []Credentials
	connectErr error
}

func (f *fakeLink) IsConnected(context.Context) bool {
	return f.checks.Add(1) > f.upAfter
}

func (f *fakeLink) Connect(_ context.Context, c Credentials) error {
	f.connects = append(f.connects, c)
	return f.connectErr
}

func TestJoinAlreadyConnected(t *testing.T) {
	link := &fakeLink{}
	err := Join(context.Background(), link, Credentials{SSID: "lab"}, time.Second, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, link.connects)
}

func TestJoinPollsUntilUp(t *testing.T) {
	link := &fakeLink{upAfter: 3}
	var ticks int
	err := Join(context.Background(), link, Credentials{SSID: "lab", Password: "pw"}, 5*time.Second, func(time.Duration) { ticks++ }, nil)
	require.NoError(t, err)
	assert.Equal(t, []Credentials{{SSID: "lab", Password: "pw"}}, link.connects)
	assert.Equal(t, 3, ticks)
}

func TestJoinWithoutSSIDOnlyWaits(t *testing.T) {
	link := &fakeLink{upAfter: 2}
	require.NoError(t, Join(context.Background(), link, Credentials{}, time.Second, nil, nil))
	assert.Empty(t, link.connects)
}

func TestJoinTimesOut(t *testing.T) {
	link := &fakeLink{upAfter: 1 << 30, connectErr: errors.New("no such network")}
	err := Join(context.Background(), link, Credentials{SSID: "lab"}, 250*time.Millisecond, nil, nil)
	assert.ErrorIs(t, err, ErrJoinTimeout)
}

func TestJoinCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Join(ctx, &fakeLink{upAfter: 1 << 30}, Credentials{}, time.Minute, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNetworkManagerConnectArgs(t *testing.T) {
	var got []string
	m := NewNetworkManager("wlan0")
	m.Run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return nil, nil
	}
	require.NoError(t, m.Connect(context.Background(), Credentials{SSID: "lab", Password: "secret"}))
	assert.Equal(t, []string{"nmcli", "device", "wifi", "connect", "lab", "password", "secret", "ifname", "wlan0"}, got)
}

func TestNetworkManagerConnectError(t *testing.T) {
	m := NewNetworkManager("")
	m.Run = func(context.Context, string, ...string) ([]byte, error) {
		return []byte("Error: No network with SSID 'lab' found.\n"), errors.New("exit status 10")
	}
	err := m.Connect(context.Background(), Credentials{SSID: "lab"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No network with SSID")
}

func TestNetworkManagerIsConnected(t *testing.T) {
	ifaces := []net.Interface{
		{Name: "lo", Flags: net.FlagUp | net.FlagLoopback},
		{Name: "eth0", Flags: 0},
		{Name: "wlan0", Flags: net.FlagUp},
	}
	addrs := map[string][]net.Addr{
		"lo":    {&net.IPNet{IP: net.IPv4(127, 0, 0, 1), Mask: net.CIDRMask(8, 32)}},
		"eth0":  {&net.IPNet{IP: net.IPv4(10, 0, 0, 2), Mask: net.CIDRMask(24, 32)}},
		"wlan0": {&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)}},
	}
	m := NewNetworkManager("")
	m.Interfaces = func() ([]net.Interface, error) { return ifaces, nil }
	m.Addrs = func(i net.Interface) ([]net.Addr, error) { return addrs[i.Name], nil }
	assert.False(t, m.IsConnected(context.Background()), "link-local v6 only")

	addrs["wlan0"] = append(addrs["wlan0"], &net.IPNet{IP: net.IPv4(192, 168, 1, 20), Mask: net.CIDRMask(24, 32)})
	assert.True(t, m.IsConnected(context.Background()))

	m.Interface = "eth1"
	assert.False(t, m.IsConnected(context.Background()))
}

type staticResolver []net.IPAddr

func (s staticResolver) LookupIPAddr(context.Context, string) ([]net.IPAddr, error) {
	return s, nil
}

func TestResolve(t *testing.T) {
	ip, err := Resolve(context.Background(), nil, "10.1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "10.1.2.3", ip.String())

	r := staticResolver{{IP: net.ParseIP("2001:db8::1")}, {IP: net.ParseIP("192.168.1.5")}}
	ip, err = Resolve(context.Background(), r, "mb2022.local")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.5", ip.String())

	ip, err = Resolve(context.Background(), staticResolver{{IP: net.ParseIP("2001:db8::1")}}, "v6only")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1", ip.String())

	_, err = Resolve(context.Background(), staticResolver{}, "nothing")
	assert.ErrorIs(t, err, ErrNoAddress)
}
