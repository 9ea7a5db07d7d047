package svcctl

import "strings"

// ServiceInfo describes a service to create. It is supplied by the caller,
// consumed once by CreateService, and never retained afterward; in
// particular the password is encoded for the single creation call and not
// stored anywhere.
type ServiceInfo struct {
	// Name is the service key name
	Name string
	// DisplayName is the human-readable label; empty selects the
	// authority default (the key name)
	DisplayName string
	// ServiceType classifies the service
	ServiceType ServiceType
	// StartType configures when the service starts
	StartType StartType
	// ErrorControl configures how a boot-time start failure is handled
	ErrorControl ErrorControl
	// BinaryPath is the path of the service executable
	BinaryPath string
	// Arguments are launch arguments appended to the command line using
	// the authority's quoting rules
	Arguments []string
	// Dependencies are names of services that must be running first
	Dependencies []string
	// StartName is the account the service runs as; empty selects the
	// authority default (LocalSystem)
	StartName string
	// Password is the account password; empty means none
	Password string
}

// rawServiceInfo is the wide-character staging form of a ServiceInfo. It
// is scoped to a single creation call and never escapes it.
type rawServiceInfo struct {
	name        []uint16
	displayName []uint16
	binaryPath  []uint16
	deps        []uint16
	startName   []uint16
	password    []uint16
}

// raw encodes every text field of the descriptor, rejecting embedded nul
// bytes before any native call is issued.
func (si *ServiceInfo) raw() (*rawServiceInfo, error) {
	if strings.ContainsRune(si.BinaryPath, 0) {
		return nil, &NulByteError{Field: "binary path"}
	}
	for _, arg := range si.Arguments {
		if strings.ContainsRune(arg, 0) {
			return nil, &NulByteError{Field: "launch arguments"}
		}
	}

	var (
		raw rawServiceInfo
		err error
	)
	if raw.name, err = encodeWide("service name", si.Name); err != nil {
		return nil, err
	}
	if raw.displayName, err = encodeWideOptional("display name", si.DisplayName); err != nil {
		return nil, err
	}
	if raw.binaryPath, err = encodeWide("binary path", commandLine(si.BinaryPath, si.Arguments)); err != nil {
		return nil, err
	}
	if raw.deps, err = wideBlock("dependencies", si.Dependencies); err != nil {
		return nil, err
	}
	if raw.startName, err = encodeWideOptional("account name", si.StartName); err != nil {
		return nil, err
	}
	if raw.password, err = encodeWideOptional("account password", si.Password); err != nil {
		return nil, err
	}
	return &raw, nil
}

// commandLine assembles the service command line from the executable path
// and its launch arguments.
func commandLine(path string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, escapeArg(path))
	for _, arg := range args {
		parts = append(parts, escapeArg(arg))
	}
	return strings.Join(parts, " ")
}

// escapeArg quotes one command line argument following the parsing rules
// the authority's runtime applies: arguments containing spaces, tabs, or
// quotes are wrapped in double quotes, backslashes immediately preceding
// a quote (or the closing quote) are doubled, and embedded quotes are
// backslash-escaped.
func escapeArg(s string) string {
	if s == "" {
		return `""`
	}
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	b := make([]byte, 0, len(s)+2)
	b = append(b, '"')
	slashes := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			slashes++
			b = append(b, c)
		case '"':
			for ; slashes > 0; slashes-- {
				b = append(b, '\\')
			}
			b = append(b, '\\', '"')
		default:
			slashes = 0
			b = append(b, c)
		}
	}
	for ; slashes > 0; slashes-- {
		b = append(b, '\\')
	}
	b = append(b, '"')
	return string(b)
}
