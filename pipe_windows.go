//go:build windows

package svcctl

import (
	"fmt"
	"time"

	"github.com/Microsoft/go-winio"

	"github.com/axondata/go-svcctl/internal/dcerpc"
)

// svcctlSyntax identifies the service control manager RPC interface
// (367abb81-9844-35f1-ad32-98f038001003 v2.0).
var svcctlSyntax = dcerpc.Syntax{
	UUID: [16]byte{
		0x81, 0xbb, 0x7a, 0x36, 0x44, 0x98, 0xf1, 0x35,
		0xad, 0x32, 0x98, 0xf0, 0x38, 0x00, 0x10, 0x03,
	},
	Major: 2,
}

// dialSCM opens the authority's svcctl named pipe and binds the service
// control interface over it. An empty machine targets the local endpoint;
// a machine name reaches the remote pipe through the redirector.
func dialSCM(machine string, timeout time.Duration) (Transport, error) {
	path := `\\.\pipe\svcctl`
	if machine != "" {
		path = fmt.Sprintf(`\\%s\pipe\svcctl`, machine)
	}

	var t *time.Duration
	if timeout > 0 {
		t = &timeout
	}
	conn, err := winio.DialPipe(path, t)
	if err != nil {
		return nil, err
	}

	client := dcerpc.NewClient(conn)
	if err := client.Bind(svcctlSyntax); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
