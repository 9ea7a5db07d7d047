package svcctl

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"
)

// makeStatusData builds a raw SERVICE_STATUS record.
func makeStatusData(serviceType, state, accepts, win32Exit, svcExit, checkPoint, waitHintMs uint32) []byte {
	data := make([]byte, statusSize)
	binary.LittleEndian.PutUint32(data[offsetServiceType:], serviceType)
	binary.LittleEndian.PutUint32(data[offsetCurrentState:], state)
	binary.LittleEndian.PutUint32(data[offsetControlsAccepted:], accepts)
	binary.LittleEndian.PutUint32(data[offsetWin32ExitCode:], win32Exit)
	binary.LittleEndian.PutUint32(data[offsetServiceExitCode:], svcExit)
	binary.LittleEndian.PutUint32(data[offsetCheckPoint:], checkPoint)
	binary.LittleEndian.PutUint32(data[offsetWaitHint:], waitHintMs)
	return data
}

func TestDecodeStatus(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		want      ServiceStatus
		wantErr   bool
		wantField string
	}{
		{
			name:    "empty data",
			data:    []byte{},
			wantErr: true,
		},
		{
			name:    "one byte short",
			data:    make([]byte, statusSize-1),
			wantErr: true,
		},
		{
			name:    "one byte long",
			data:    make([]byte, statusSize+1),
			wantErr: true,
		},
		{
			name: "running own process",
			data: makeStatusData(uint32(Win32OwnProcess), uint32(Running), uint32(AcceptStop|AcceptShutdown), 0, 0, 0, 0),
			want: ServiceStatus{
				ServiceType: Win32OwnProcess,
				State:       Running,
				Accepts:     AcceptStop | AcceptShutdown,
			},
		},
		{
			name: "stopping with wait hint",
			data: makeStatusData(uint32(Win32ShareProcess), uint32(StopPending), 0, 0, 0, 3, 2500),
			want: ServiceStatus{
				ServiceType: Win32ShareProcess,
				State:       StopPending,
				CheckPoint:  3,
				WaitHint:    2500 * time.Millisecond,
			},
		},
		{
			name: "stopped with service-specific exit code",
			data: makeStatusData(uint32(Win32OwnProcess), uint32(Stopped), 0, uint32(ErrServiceSpecificError), 42, 0, 0),
			want: ServiceStatus{
				ServiceType:     Win32OwnProcess,
				State:           Stopped,
				Win32ExitCode:   uint32(ErrServiceSpecificError),
				ServiceExitCode: 42,
			},
		},
		{
			name: "interactive own process",
			data: makeStatusData(uint32(Win32OwnProcess|InteractiveProcess), uint32(Paused), uint32(AcceptPauseContinue), 0, 0, 0, 0),
			want: ServiceStatus{
				ServiceType: Win32OwnProcess | InteractiveProcess,
				State:       Paused,
				Accepts:     AcceptPauseContinue,
			},
		},
		{
			name: "zero service type tolerated",
			data: makeStatusData(0, uint32(Stopped), 0, 0, 0, 0, 0),
			want: ServiceStatus{State: Stopped},
		},
		{
			name:      "unknown service type bit",
			data:      makeStatusData(0x8000, uint32(Running), 0, 0, 0, 0, 0),
			wantErr:   true,
			wantField: "service type",
		},
		{
			name:      "state zero",
			data:      makeStatusData(uint32(Win32OwnProcess), 0, 0, 0, 0, 0, 0),
			wantErr:   true,
			wantField: "current state",
		},
		{
			name:      "state past paused",
			data:      makeStatusData(uint32(Win32OwnProcess), 8, 0, 0, 0, 0, 0),
			wantErr:   true,
			wantField: "current state",
		},
		{
			name:      "unknown accepts bit",
			data:      makeStatusData(uint32(Win32OwnProcess), uint32(Running), 0x8000, 0, 0, 0, 0),
			wantErr:   true,
			wantField: "controls accepted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeStatus(tt.data)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeStatus() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrDecode) {
					t.Errorf("error = %v, want ErrDecode in chain", err)
				}
				if tt.wantField != "" {
					var derr *DecodeError
					if !errors.As(err, &derr) {
						t.Fatalf("error = %T, want *DecodeError", err)
					}
					if derr.Field != tt.wantField {
						t.Errorf("Field = %q, want %q", derr.Field, tt.wantField)
					}
				}
				return
			}
			if got != tt.want {
				t.Errorf("decodeStatus() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// makeEntryBuffer lays out enumeration records followed by their string
// pool, the way the authority fills a reply buffer.
func makeEntryBuffer(entries []ServiceEntry) []byte {
	records := make([]byte, len(entries)*entrySize)
	var pool []byte
	for i, e := range entries {
		rec := records[i*entrySize:]
		nameOff := len(records) + len(pool)
		pool = append(pool, wideToBytes(mustWide(e.Name))...)
		displayOff := len(records) + len(pool)
		pool = append(pool, wideToBytes(mustWide(e.DisplayName))...)

		binary.LittleEndian.PutUint32(rec[offsetEntryName:], uint32(nameOff))
		binary.LittleEndian.PutUint32(rec[offsetEntryDisplayName:], uint32(displayOff))
		copy(rec[offsetEntryStatus:], makeStatusData(
			uint32(e.Status.ServiceType),
			uint32(e.Status.State),
			uint32(e.Status.Accepts),
			e.Status.Win32ExitCode,
			e.Status.ServiceExitCode,
			e.Status.CheckPoint,
			uint32(e.Status.WaitHint/time.Millisecond),
		))
	}
	return append(records, pool...)
}

func TestDecodeEntries(t *testing.T) {
	want := []ServiceEntry{
		{
			Name:        "websvc",
			DisplayName: "Web Service",
			Status:      ServiceStatus{ServiceType: Win32OwnProcess, State: Running, Accepts: AcceptStop},
		},
		{
			Name:        "fltdrv",
			DisplayName: "Filter Driver",
			Status:      ServiceStatus{ServiceType: KernelDriver, State: Stopped},
		},
	}
	buf := makeEntryBuffer(want)

	got, err := decodeEntries(buf, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestDecodeEntriesCountOverrun(t *testing.T) {
	buf := makeEntryBuffer([]ServiceEntry{{
		Name:   "solo",
		Status: ServiceStatus{ServiceType: Win32OwnProcess, State: Running},
	}})

	if _, err := decodeEntries(buf, 5000); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode in chain", err)
	}
}

func TestDecodeEntryTruncation(t *testing.T) {
	base := []ServiceEntry{{
		Name:        "websvc",
		DisplayName: "Web Service",
		Status:      ServiceStatus{ServiceType: Win32OwnProcess, State: Running},
	}}

	tests := []struct {
		name      string
		corrupt   func([]byte) []byte
		wantField string
	}{
		{
			name: "name offset beyond buffer",
			corrupt: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[offsetEntryName:], uint32(len(b)+4))
				return b
			},
			wantField: "service name",
		},
		{
			name: "display offset beyond buffer",
			corrupt: func(b []byte) []byte {
				binary.LittleEndian.PutUint32(b[offsetEntryDisplayName:], uint32(len(b)+4))
				return b
			},
			wantField: "display name",
		},
		{
			name: "string missing terminator",
			corrupt: func(b []byte) []byte {
				// Point the name at the last code unit and strip the
				// terminator so the scan runs off the end.
				binary.LittleEndian.PutUint32(b[offsetEntryName:], uint32(len(b)-2))
				return b[:len(b)-2]
			},
			wantField: "service name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := tt.corrupt(makeEntryBuffer(base))
			_, err := decodeEntry(buf, 0)
			if err == nil {
				t.Fatal("expected decode error")
			}
			var derr *DecodeError
			if !errors.As(err, &derr) {
				t.Fatalf("error = %T, want *DecodeError", err)
			}
			if derr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", derr.Field, tt.wantField)
			}
		})
	}
}

func TestDecodeEntryShortBuffer(t *testing.T) {
	if _, err := decodeEntry(make([]byte, entrySize-1), 0); !errors.Is(err, ErrDecode) {
		t.Errorf("error = %v, want ErrDecode in chain", err)
	}
	if _, err := decodeEntry(make([]byte, entrySize), entrySize); !errors.Is(err, ErrDecode) {
		t.Errorf("offset past end: error = %v, want ErrDecode in chain", err)
	}
}

func FuzzDecodeStatus(f *testing.F) {
	f.Add(makeStatusData(uint32(Win32OwnProcess), uint32(Running), uint32(AcceptStop), 0, 0, 0, 0))
	f.Add(makeStatusData(uint32(KernelDriver), uint32(Stopped), 0, 31, 0, 0, 0))
	f.Add(make([]byte, statusSize))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		status, err := decodeStatus(data)
		if err != nil {
			return
		}
		// Whatever decodes must satisfy the strictness guarantees.
		if status.State < Stopped || status.State > Paused {
			t.Errorf("accepted out-of-range state %d", status.State)
		}
		if status.ServiceType&^knownServiceTypeMask != 0 {
			t.Errorf("accepted unknown service type bits %#x", uint32(status.ServiceType))
		}
		if status.Accepts&^knownAcceptMask != 0 {
			t.Errorf("accepted unknown accept bits %#x", uint32(status.Accepts))
		}
	})
}
