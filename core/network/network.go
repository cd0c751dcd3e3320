// Package network implements the network_* JSON-RPC method group's
// backing service: static/no-op values rather than a real devp2p stack,
// since the relayer has no peer-to-peer layer of its own.
package network

// Service answers network_version/peerCount/isListening the way a relayer
// with no peer-to-peer layer of its own can honestly answer them: a fixed
// version string (the one given to New) as the "network version", zero
// peers, and "not listening".
type Service struct {
	version string
}

// New builds a stub network service reporting version as its
// network_version.
func New(version string) *Service {
	return &Service{version: version}
}

// Version returns the configured network_version string.
func (s *Service) Version() string { return s.version }

// PeerCount is always zero: the relayer does not participate in devp2p.
func (s *Service) PeerCount() uint64 { return 0 }

// Listening is always false, for the same reason as PeerCount.
func (s *Service) Listening() bool { return false }
