package route

import "fmt"

// Kind identifies the stream factory family that owns a route.
type Kind uint8

const (
	// Server routes accept streams initiated by a source and deliver them to a target.
	Server Kind = iota + 1

	// Client routes initiate streams towards a target on behalf of a source.
	Client

	// Proxy routes forward streams between two endpoints without terminating them.
	Proxy

	// ServerReply routes carry the reply direction of a server stream.
	ServerReply

	// ClientReply routes carry the reply direction of a client stream.
	ClientReply
)

// Kinds lists every valid route kind in declaration order.
var Kinds = []Kind{Server, Client, Proxy, ServerReply, ClientReply}

var kindNames = map[Kind]string{
	Server:      "server",
	Client:      "client",
	Proxy:       "proxy",
	ServerReply: "server-reply",
	ClientReply: "client-reply",
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind returns the kind with the given name.
func ParseKind(name string) (Kind, error) {
	for kind, n := range kindNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}
