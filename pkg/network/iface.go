package network

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrNoInterface = errors.New("no suitable network interface found")

// Interface is the view of a host interface the resolver selects from.
type Interface struct {
	Name     string
	Loopback bool
	Addrs    []net.IP
}

// InterfaceLister enumerates host interfaces.
type InterfaceLister func() ([]Interface, error)

// SystemInterfaces lists the interfaces of the running host.
func SystemInterfaces() ([]Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	result := make([]Interface, 0, len(ifaces))
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		entry := Interface{
			Name:     iface.Name,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		for _, addr := range addrs {
			switch v := addr.(type) {
			case *net.IPNet:
				entry.Addrs = append(entry.Addrs, v.IP)
			case *net.IPAddr:
				entry.Addrs = append(entry.Addrs, v.IP)
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// InterfaceResolver selects the address this node scans from: the preferred
// interface when it carries IPv4, otherwise the first non-loopback interface
// that does.
type InterfaceResolver struct {
	preferred string
	list      InterfaceLister
	log       *logrus.Logger
}

func NewInterfaceResolver(preferred string, list InterfaceLister, log *logrus.Logger) *InterfaceResolver {
	if list == nil {
		list = SystemInterfaces
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &InterfaceResolver{
		preferred: preferred,
		list:      list,
		log:       log,
	}
}

func (r *InterfaceResolver) Resolve() (string, string, error) {
	ifaces, err := r.list()
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNoInterface, err)
	}

	name, ip := r.pick(ifaces)
	if ip == nil {
		return "", "", ErrNoInterface
	}

	local := ip.String()
	prefix, err := SubnetPrefix(local)
	if err != nil {
		return "", "", err
	}

	r.log.WithFields(logrus.Fields{
		"interface": name,
		"ip":        local,
	}).Debug("Using network interface")
	return local, prefix, nil
}

func (r *InterfaceResolver) pick(ifaces []Interface) (string, net.IP) {
	if r.preferred != "" {
		for _, iface := range ifaces {
			if iface.Name != r.preferred {
				continue
			}
			if ip := firstIPv4(iface.Addrs); ip != nil {
				return iface.Name, ip
			}
		}
	}

	for _, iface := range ifaces {
		if iface.Loopback {
			continue
		}
		if ip := firstIPv4(iface.Addrs); ip != nil {
			return iface.Name, ip
		}
	}
	return "", nil
}

func firstIPv4(addrs []net.IP) net.IP {
	for _, ip := range addrs {
		if ip4 := ip.To4(); ip4 != nil {
			return ip4
		}
	}
	return nil
}

// SubnetPrefix returns the first three octets of an IPv4 address.
func SubnetPrefix(ip string) (string, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.To4() == nil {
		return "", fmt.Errorf("not an IPv4 address: %q", ip)
	}
	octets := strings.Split(parsed.To4().String(), ".")
	return strings.Join(octets[:3], "."), nil
}
