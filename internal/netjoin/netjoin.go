// internal/netjoin/netjoin.go
// Network join and server name resolution for the device.
package netjoin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/erilali/reactionpad/internal/logger"
)

// PollInterval is how often the link is checked while joining.
const PollInterval = 100 * time.Millisecond

var (
	ErrJoinTimeout = errors.New("netjoin: not connected before timeout")
	ErrNoAddress   = errors.New("netjoin: host has no address")
)

// Credentials for the wireless network. An empty SSID means the link is
// managed elsewhere and Join only waits for it.
type Credentials struct {
	SSID      string
	Password  string
	Interface string
}

// Connectivity reports and requests the network link.
type Connectivity interface {
	IsConnected(ctx context.Context) bool
	Connect(ctx context.Context, creds Credentials) error
}

// Join makes sure the device is online. onTick is called on every poll with
// the time spent so far and may be nil.
func Join(ctx context.Context, c Connectivity, creds Credentials, timeout time.Duration, onTick func(time.Duration), log *logger.Logger) error {
	if log == nil {
		log = logger.Nop()
	}
	if c.IsConnected(ctx) {
		log.Info("Network already connected")
		return nil
	}
	if creds.SSID != "" {
		log.Infof("Connecting to %s", creds.SSID)
		if err := c.Connect(ctx, creds); err != nil {
			log.Warnf("Connect request failed: %v", err)
		}
	}

	start := time.Now()
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()
	for {
		elapsed := time.Since(start)
		if onTick != nil {
			onTick(elapsed)
		}
		if c.IsConnected(ctx) {
			log.Infof("Network connected after %s", elapsed.Round(time.Millisecond))
			return nil
		}
		if elapsed >= timeout {
			return ErrJoinTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Runner executes an external command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// NetworkManager uses the host interfaces for the link check and nmcli to
// request a connection.
type NetworkManager struct {
	// Interface limits the check to one interface when set.
	Interface  string
	Run        Runner
	Interfaces func() ([]net.Interface, error)
	Addrs      func(iface net.Interface) ([]net.Addr, error)
}

// NewNetworkManager returns a NetworkManager backed by the real host.
func NewNetworkManager(iface string) *NetworkManager {
	return &NetworkManager{
		Interface:  iface,
		Run:        execRunner,
		Interfaces: net.Interfaces,
		Addrs:      func(i net.Interface) ([]net.Addr, error) { return i.Addrs() },
	}
}

// IsConnected is true when a non-loopback interface is up and holds an IPv4
// address.
func (m *NetworkManager) IsConnected(ctx context.Context) bool {
	ifaces, err := m.Interfaces()
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if m.Interface != "" && iface.Name != m.Interface {
			continue
		}
		addrs, err := m.Addrs(iface)
		if err != nil {
			continue
		}
		for _, a := range addrs {
			if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
				return true
			}
		}
	}
	return false
}

// Connect asks NetworkManager to join the network.
func (m *NetworkManager) Connect(ctx context.Context, creds Credentials) error {
	args := []string{"device", "wifi", "connect", creds.SSID}
	if creds.Password != "" {
		args = append(args, "password", creds.Password)
	}
	iface := creds.Interface
	if iface == "" {
		iface = m.Interface
	}
	if iface != "" {
		args = append(args, "ifname", iface)
	}
	out, err := m.Run(ctx, "nmcli", args...)
	if err != nil {
		return fmt.Errorf("nmcli: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Resolver is the part of net.Resolver used here.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Resolve returns the first IPv4 address of host, or the first address of
// any family when there is no IPv4 one. IP literals are returned as is.
func Resolve(ctx context.Context, r Resolver, host string) (net.IP, error) {
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("netjoin: resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAddress, host)
	}
	for _, a := range addrs {
		if v4 := a.IP.To4(); v4 != nil {
			return v4, nil
		}
	}
	return addrs[0].IP, nil
}
