// Package common keeps small types shared by configuration and the feed
// builder without creating import cycles between them.
package common

import (
	"fmt"
	"strings"
)

// Protocol selects the XML feed schema generation.
type Protocol int

const (
	// ProtocolV1 identifies pages by url tokens and renders toc as HTML menu.
	ProtocolV1 Protocol = iota + 1
	// ProtocolV2 identifies pages by slugs and adds structured toc and url
	// slugs.
	ProtocolV2
)

var protocolNames = map[Protocol]string{
	ProtocolV1: "v1",
	ProtocolV2: "v2",
}

// ProtocolNames returns list of possible string values of Protocol.
func ProtocolNames() []string {
	return []string{ProtocolV1.String(), ProtocolV2.String()}
}

func (p Protocol) String() string {
	if name, ok := protocolNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

func (p Protocol) IsValid() bool {
	_, ok := protocolNames[p]
	return ok
}

// ParseProtocol accepts "v1", "v2" as well as bare "1" and "2".
func ParseProtocol(name string) (Protocol, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for p, n := range protocolNames {
		if name == n || "v"+name == n {
			return p, nil
		}
	}
	return Protocol(0), fmt.Errorf("%s is not a valid Protocol, try [%s]", name, strings.Join(ProtocolNames(), ", "))
}

func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Protocol) UnmarshalText(text []byte) error {
	v, err := ParseProtocol(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}
