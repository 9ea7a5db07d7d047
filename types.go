package svcctl

import (
	"strconv"
	"strings"
	"time"
)

// Service control manager database names accepted by Connect.
const (
	// ServicesActiveDatabase is the database of currently installed services
	ServicesActiveDatabase = "ServicesActive"

	// ServicesFailedDatabase is the database of services that failed to start
	ServicesFailedDatabase = "ServicesFailed"
)

// Tunable defaults
const (
	// MaxServiceNameLen is the maximum length of a service key name or
	// display name imposed by the service control manager, excluding the
	// null terminator.
	// Reference: https://learn.microsoft.com/windows/win32/api/winsvc/nf-winsvc-createservicew
	MaxServiceNameLen = 256

	// DefaultDialTimeout is the default timeout for the named pipe dial
	DefaultDialTimeout = 5 * time.Second

	// DefaultWatchInterval is the default polling interval for Watch
	DefaultWatchInterval = 500 * time.Millisecond

	// DefaultConcurrency is the default number of concurrent workers in a Batch
	DefaultConcurrency = 10
)

// AccessRights is a bitmask of permitted operations requested when a
// manager connection or service handle is acquired. The authority enforces
// the mask on every later call made through that handle.
//
// Reference: https://learn.microsoft.com/windows/win32/services/service-security-and-access-rights
type AccessRights uint32

// Manager-level access rights, used with Connect and ConnectRemote.
const (
	// SCManagerConnect permits connecting to the service control manager
	SCManagerConnect AccessRights = 0x0001
	// SCManagerCreateService permits CreateService
	SCManagerCreateService AccessRights = 0x0002
	// SCManagerEnumerateService permits EnumerateServices
	SCManagerEnumerateService AccessRights = 0x0004
	// SCManagerLock permits locking the service database
	SCManagerLock AccessRights = 0x0008
	// SCManagerQueryLockStatus permits querying the database lock status
	SCManagerQueryLockStatus AccessRights = 0x0010
	// SCManagerModifyBootConfig permits changing boot configuration
	SCManagerModifyBootConfig AccessRights = 0x0020
	// SCManagerAllAccess combines every manager right with the standard rights
	SCManagerAllAccess AccessRights = 0xF003F
)

// Service-level access rights, used with OpenService and CreateService.
const (
	// ServiceQueryConfig permits QueryConfig
	ServiceQueryConfig AccessRights = 0x0001
	// ServiceChangeConfig permits changing the service configuration
	ServiceChangeConfig AccessRights = 0x0002
	// ServiceQueryStatus permits QueryStatus
	ServiceQueryStatus AccessRights = 0x0004
	// ServiceEnumerateDependents permits enumerating dependent services
	ServiceEnumerateDependents AccessRights = 0x0008
	// ServiceStart permits Start
	ServiceStart AccessRights = 0x0010
	// ServiceStop permits stopping via Control
	ServiceStop AccessRights = 0x0020
	// ServicePauseContinue permits pause and continue controls
	ServicePauseContinue AccessRights = 0x0040
	// ServiceInterrogate permits the interrogate control
	ServiceInterrogate AccessRights = 0x0080
	// ServiceUserDefinedControl permits user-defined controls
	ServiceUserDefinedControl AccessRights = 0x0100
	// ServiceAllAccess combines every service right with the standard rights
	ServiceAllAccess AccessRights = 0xF01FF

	// Delete is the standard right required by Service.Delete
	Delete AccessRights = 0x10000
	// ReadControl is the standard right to read the security descriptor
	ReadControl AccessRights = 0x20000
	// WriteDAC is the standard right to change the discretionary ACL
	WriteDAC AccessRights = 0x40000
	// WriteOwner is the standard right to change the object owner
	WriteOwner AccessRights = 0x80000
)

// ServiceType classifies a service. Exactly one process or driver bit is
// set on a concrete service (optionally combined with InteractiveProcess);
// multiple bits form a filter when passed to EnumerateServices.
type ServiceType uint32

const (
	// KernelDriver is a driver service
	KernelDriver ServiceType = 0x0001
	// FileSystemDriver is a file system driver service
	FileSystemDriver ServiceType = 0x0002
	// Adapter is a reserved adapter entry
	Adapter ServiceType = 0x0004
	// RecognizerDriver is a file system recognizer driver
	RecognizerDriver ServiceType = 0x0008
	// Win32OwnProcess is a service running in its own process
	Win32OwnProcess ServiceType = 0x0010
	// Win32ShareProcess is a service sharing a process with other services
	Win32ShareProcess ServiceType = 0x0020
	// InteractiveProcess marks a service that may interact with the desktop.
	// It is combined with one of the Win32 process types.
	InteractiveProcess ServiceType = 0x0100

	// Drivers filters all driver types
	Drivers = KernelDriver | FileSystemDriver | RecognizerDriver
	// Win32Services filters all Win32 process types
	Win32Services = Win32OwnProcess | Win32ShareProcess
	// AllServiceTypes filters every known service type
	AllServiceTypes = Drivers | Adapter | Win32Services | InteractiveProcess
)

// serviceTypeNames maps each single ServiceType bit to its name, in bit order.
var serviceTypeNames = []struct {
	bit  ServiceType
	name string
}{
	{KernelDriver, "kernel-driver"},
	{FileSystemDriver, "fs-driver"},
	{Adapter, "adapter"},
	{RecognizerDriver, "recognizer-driver"},
	{Win32OwnProcess, "win32-own-process"},
	{Win32ShareProcess, "win32-share-process"},
	{InteractiveProcess, "interactive"},
}

// String returns the set type bits joined with "|".
func (t ServiceType) String() string {
	if t == 0 {
		return "none"
	}
	var parts []string
	rest := t
	for _, e := range serviceTypeNames {
		if rest&e.bit != 0 {
			parts = append(parts, e.name)
			rest &^= e.bit
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(parts, "|")
}

// ActiveState selects which services EnumerateServices reports by run state.
type ActiveState uint32

const (
	// ActiveServices selects services that are started, pausing, or paused
	ActiveServices ActiveState = 0x0001
	// InactiveServices selects services that are stopped
	InactiveServices ActiveState = 0x0002
	// AllServices selects every service regardless of run state
	AllServices ActiveState = 0x0003
)

// ActiveState string constants
const (
	activeStr      = "active"
	inactiveStr    = "inactive"
	allServicesStr = "all"
)

// String returns the string representation of an ActiveState
func (s ActiveState) String() string {
	switch s {
	case ActiveServices:
		return activeStr
	case InactiveServices:
		return inactiveStr
	case AllServices:
		return allServicesStr
	default:
		return "unknown(" + strconv.FormatUint(uint64(s), 10) + ")"
	}
}

// ServiceState is the current run state reported in a ServiceStatus.
type ServiceState uint32

const (
	// Stopped means the service is not running
	Stopped ServiceState = 1
	// StartPending means the service is starting
	StartPending ServiceState = 2
	// StopPending means the service is stopping
	StopPending ServiceState = 3
	// Running means the service is running
	Running ServiceState = 4
	// ContinuePending means a continue is in progress
	ContinuePending ServiceState = 5
	// PausePending means a pause is in progress
	PausePending ServiceState = 6
	// Paused means the service is paused
	Paused ServiceState = 7
)

// ServiceState string constants
const (
	stoppedStr         = "stopped"
	startPendingStr    = "start-pending"
	stopPendingStr     = "stop-pending"
	runningStr         = "running"
	continuePendingStr = "continue-pending"
	pausePendingStr    = "pause-pending"
	pausedStr          = "paused"
)

// String returns the string representation of a ServiceState
func (s ServiceState) String() string {
	switch s {
	case Stopped:
		return stoppedStr
	case StartPending:
		return startPendingStr
	case StopPending:
		return stopPendingStr
	case Running:
		return runningStr
	case ContinuePending:
		return continuePendingStr
	case PausePending:
		return pausePendingStr
	case Paused:
		return pausedStr
	default:
		return "unknown(" + strconv.FormatUint(uint64(s), 10) + ")"
	}
}

// StartType configures when a service is started.
type StartType uint32

const (
	// BootStart is a driver started by the system loader
	BootStart StartType = 0
	// SystemStart is a driver started during kernel initialization
	SystemStart StartType = 1
	// AutoStart starts the service automatically at boot
	AutoStart StartType = 2
	// DemandStart starts the service on demand
	DemandStart StartType = 3
	// Disabled prevents the service from being started
	Disabled StartType = 4
)

// String returns the string representation of a StartType
func (t StartType) String() string {
	switch t {
	case BootStart:
		return "boot"
	case SystemStart:
		return "system"
	case AutoStart:
		return "auto"
	case DemandStart:
		return "demand"
	case Disabled:
		return "disabled"
	default:
		return "unknown(" + strconv.FormatUint(uint64(t), 10) + ")"
	}
}

// ErrorControl configures how a start failure during boot is handled.
type ErrorControl uint32

const (
	// ErrorIgnore logs the failure and continues startup
	ErrorIgnore ErrorControl = 0
	// ErrorNormal logs the failure, shows a message, and continues startup
	ErrorNormal ErrorControl = 1
	// ErrorSevere restarts with the last-known-good configuration
	ErrorSevere ErrorControl = 2
	// ErrorCritical restarts with last-known-good or fails startup
	ErrorCritical ErrorControl = 3
)

// String returns the string representation of an ErrorControl
func (c ErrorControl) String() string {
	switch c {
	case ErrorIgnore:
		return "ignore"
	case ErrorNormal:
		return "normal"
	case ErrorSevere:
		return "severe"
	case ErrorCritical:
		return "critical"
	default:
		return "unknown(" + strconv.FormatUint(uint64(c), 10) + ")"
	}
}

// ServiceControl is a control code delivered to a running service.
type ServiceControl uint32

const (
	// ControlStop requests the service to stop
	ControlStop ServiceControl = 1
	// ControlInterrogate requests an immediate status report
	ControlInterrogate ServiceControl = 4
)

// String returns the string representation of a ServiceControl
func (c ServiceControl) String() string {
	switch c {
	case ControlStop:
		return "stop"
	case ControlInterrogate:
		return "interrogate"
	default:
		return "unknown(" + strconv.FormatUint(uint64(c), 10) + ")"
	}
}

// ServiceAccept is the bitmask of controls a running service accepts,
// reported in ServiceStatus.Accepts.
type ServiceAccept uint32

const (
	// AcceptStop means the service accepts the stop control
	AcceptStop ServiceAccept = 0x0001
	// AcceptPauseContinue means the service accepts pause and continue
	AcceptPauseContinue ServiceAccept = 0x0002
	// AcceptShutdown means the service is notified of system shutdown
	AcceptShutdown ServiceAccept = 0x0004
	// AcceptParamChange means the service accepts parameter change notifications
	AcceptParamChange ServiceAccept = 0x0008
	// AcceptNetBindChange means the service accepts network binding notifications
	AcceptNetBindChange ServiceAccept = 0x0010
	// AcceptHardwareProfileChange means the service accepts hardware profile notifications
	AcceptHardwareProfileChange ServiceAccept = 0x0020
	// AcceptPowerEvent means the service accepts power event notifications
	AcceptPowerEvent ServiceAccept = 0x0040
	// AcceptSessionChange means the service accepts session change notifications
	AcceptSessionChange ServiceAccept = 0x0080
	// AcceptPreshutdown means the service is notified before system shutdown
	AcceptPreshutdown ServiceAccept = 0x0100
	// AcceptTimeChange means the service accepts system time change notifications
	AcceptTimeChange ServiceAccept = 0x0200
	// AcceptTriggerEvent means the service accepts trigger event notifications
	AcceptTriggerEvent ServiceAccept = 0x0400
)

// acceptNames maps each single ServiceAccept bit to its name, in bit order.
var acceptNames = []struct {
	bit  ServiceAccept
	name string
}{
	{AcceptStop, "stop"},
	{AcceptPauseContinue, "pause-continue"},
	{AcceptShutdown, "shutdown"},
	{AcceptParamChange, "param-change"},
	{AcceptNetBindChange, "netbind-change"},
	{AcceptHardwareProfileChange, "hardware-profile-change"},
	{AcceptPowerEvent, "power-event"},
	{AcceptSessionChange, "session-change"},
	{AcceptPreshutdown, "preshutdown"},
	{AcceptTimeChange, "time-change"},
	{AcceptTriggerEvent, "trigger-event"},
}

// String returns the set accept bits joined with "|".
func (a ServiceAccept) String() string {
	if a == 0 {
		return "none"
	}
	var parts []string
	rest := a
	for _, e := range acceptNames {
		if rest&e.bit != 0 {
			parts = append(parts, e.name)
			rest &^= e.bit
		}
	}
	if rest != 0 {
		parts = append(parts, "0x"+strconv.FormatUint(uint64(rest), 16))
	}
	return strings.Join(parts, "|")
}

// Known-value masks used by the record decoders to reject values outside
// the enumerations above.
const (
	knownServiceTypeMask = AllServiceTypes
	knownAcceptMask      = AcceptStop | AcceptPauseContinue | AcceptShutdown |
		AcceptParamChange | AcceptNetBindChange | AcceptHardwareProfileChange |
		AcceptPowerEvent | AcceptSessionChange | AcceptPreshutdown |
		AcceptTimeChange | AcceptTriggerEvent
)
