package svcctl

// ServiceConfig is the decoded persistent configuration of a service, as
// reported by Service.QueryConfig. Like a status snapshot it is produced
// fresh on every query and never mutated in place.
type ServiceConfig struct {
	// ServiceType classifies the service
	ServiceType ServiceType
	// StartType configures when the service starts
	StartType StartType
	// ErrorControl configures how a boot-time start failure is handled
	ErrorControl ErrorControl
	// BinaryPath is the command line the service is launched with
	BinaryPath string
	// LoadOrderGroup is the load ordering group, empty when none
	LoadOrderGroup string
	// TagID is the load order tag within the group, 0 when none
	TagID uint32
	// Dependencies lists the services and groups that must start first
	Dependencies []string
	// StartName is the account the service runs as
	StartName string
	// DisplayName is the human-readable label
	DisplayName string
}

// rawConfig is an undecoded QUERY_SERVICE_CONFIGW reply record: three
// enumerated DWORDs, a tag, and up to five deferred wide strings.
type rawConfig struct {
	serviceType  uint32
	startType    uint32
	errorControl uint32
	tagID        uint32
	binaryPath   []uint16
	group        []uint16
	deps         []uint16
	startName    []uint16
	displayName  []uint16
}

// readConfig reads the configuration record from a response stub. The
// record header carries referent IDs for the string fields; the string
// bodies follow the header in field order. On a failed call the header is
// zeroed and every referent is null, so reading stays valid either way.
func readConfig(r *stubReader) rawConfig {
	var rc rawConfig
	rc.serviceType = r.uint32()
	rc.startType = r.uint32()
	rc.errorControl = r.uint32()
	refBinary := r.uint32()
	refGroup := r.uint32()
	rc.tagID = r.uint32()
	refDeps := r.uint32()
	refStartName := r.uint32()
	refDisplay := r.uint32()

	if refBinary != 0 {
		rc.binaryPath = r.wideString()
	}
	if refGroup != 0 {
		rc.group = r.wideString()
	}
	if refDeps != 0 {
		rc.deps = r.wideString()
	}
	if refStartName != 0 {
		rc.startName = r.wideString()
	}
	if refDisplay != 0 {
		rc.displayName = r.wideString()
	}
	return rc
}

// decode validates the enumerated fields and decodes the strings. Start
// type and error control are single values rather than bitmasks, so
// anything past the known range is rejected. The dependency block splits
// on its embedded nulls.
func (rc rawConfig) decode() (ServiceConfig, error) {
	if err := validateServiceType(rc.serviceType); err != nil {
		return ServiceConfig{}, err
	}
	if rc.startType > uint32(Disabled) {
		return ServiceConfig{}, &DecodeError{Field: "start type", Value: rc.startType}
	}
	if rc.errorControl > uint32(ErrorCritical) {
		return ServiceConfig{}, &DecodeError{Field: "error control", Value: rc.errorControl}
	}

	return ServiceConfig{
		ServiceType:    ServiceType(rc.serviceType),
		StartType:      StartType(rc.startType),
		ErrorControl:   ErrorControl(rc.errorControl),
		BinaryPath:     decodeWide(rc.binaryPath),
		LoadOrderGroup: decodeWide(rc.group),
		TagID:          rc.tagID,
		Dependencies:   splitWideBlock(rc.deps),
		StartName:      decodeWide(rc.startName),
		DisplayName:    decodeWide(rc.displayName),
	}, nil
}
