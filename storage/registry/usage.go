package registry

// Usage is a bit set of the programs that may open a backend. The gRPC
// client backend, for example, is CLI-only so the daemon cannot proxy to
// another daemon.
type Usage uint8

const (
	// UsageCLI marks backends available to dcl-entity.
	UsageCLI Usage = 1 << iota
	// UsageDaemon marks backends available to dcl-contentd.
	UsageDaemon
)

func (u Usage) allows(want Usage) bool { return u&want != 0 }
