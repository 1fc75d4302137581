package model

import "time"

// Snapshot is the full decoded telemetry state of a unit at one instant.
// Every field except the version and watchdog detail strings is a column
// of the tabular artifact.
type Snapshot struct {
	PumpsOn       int `json:"pumps_on"`
	PumpsHot      int `json:"pumps_hot"`
	PumpSelection int `json:"pump_selection"`
	PumpsShutdown int `json:"pumps_shutdown"`
	P1CurrentHigh int `json:"p1_current_high"`
	P2CurrentHigh int `json:"p2_current_high"`
	// MaxIp1 and MaxIp2 are the highest pump currents seen, in tenths of an amp.
	MaxIp1 int `json:"max_ip1"`
	MaxIp2 int `json:"max_ip2"`

	Throttle   float64 `json:"throttle"`
	InletTemp  float64 `json:"inlet_temp"`
	OutletTemp float64 `json:"outlet_temp"`
	Flow       float64 `json:"flow"`

	InterlockOn bool `json:"interlock_on"`
	Restart     bool `json:"restart"`
	Cold        bool `json:"cold"`
	Powerdown   bool `json:"powerdown"`
	LogClosed   bool `json:"log_closed"`
	Leak        bool `json:"leak"`

	MinFlow   float64 `json:"min_flow"`
	MaxTemp   int     `json:"max_temp"`
	DissWatts int     `json:"diss_watts"`

	Cmds    int64 `json:"cmds"`
	Qrys    int64 `json:"qrys"`
	Touches int64 `json:"touches"`

	// Supply voltages are kept as logged; the device pads them with spaces.
	PS24V  string `json:"ps_24v"`
	PS5V   string `json:"ps_5v"`
	PS3p3V string `json:"ps_3p3v"`

	CPUTemp float64 `json:"cpu_temp"`
	Glitch0 int     `json:"glitch0"`
	Glitch1 int     `json:"glitch1"`
	Glitch2 int     `json:"glitch2"`

	WDTReboot      bool `json:"wdt_reboot"`
	MysteryRestart bool `json:"mystery_restart"`

	HardwareVersion string `json:"hardware_version,omitempty"`
	SoftwareVersion string `json:"software_version,omitempty"`
	RebootMarker    string `json:"reboot_marker,omitempty"`
	DogExpired      string `json:"dog_expired,omitempty"`
}

// DefaultSnapshot is the state a scan starts from.
func DefaultSnapshot() Snapshot {
	return Snapshot{PS24V: " 0.00", PS5V: " 0.00", PS3p3V: " 0.00"}
}

// Event is one transcript line.
type Event struct {
	Line  int    `json:"line"`
	Stamp Stamp  `json:"stamp"`
	Text  string `json:"text"`
	// Break asks for a blank separator line before the event.
	Break bool `json:"break,omitempty"`
}

// Row is one line of the tabular artifact.
type Row struct {
	Stamp     Stamp    `json:"stamp"`
	Duplicate bool     `json:"duplicate,omitempty"`
	Values    Snapshot `json:"values"`
}

// DiagnosticKind classifies a record the engine could not use.
type DiagnosticKind string

const (
	DiagUnrecognized DiagnosticKind = "unrecognized"
	DiagMalformed    DiagnosticKind = "malformed"
)

// Diagnostic reports a record that was skipped.
type Diagnostic struct {
	Line int            `json:"line"`
	Tag  string         `json:"tag"`
	Kind DiagnosticKind `json:"kind"`
	Text string         `json:"text"`
}

// Summary is what a finished scan reports back.
type Summary struct {
	First         Stamp `json:"first"`
	Last          Stamp `json:"last"`
	Lines         int   `json:"lines"`
	Records       int   `json:"records"`
	Events        int   `json:"events"`
	Rows          int   `json:"rows"`
	DuplicateRows int   `json:"duplicate_rows"`
	Unrecognized  int   `json:"unrecognized"`
	Malformed     int   `json:"malformed"`
}

// Scan is an archived conversion run.
type Scan struct {
	ID        string     `json:"id"`
	Serial    string     `json:"serial,omitempty"`
	LogNum    int        `json:"log_num,omitempty"`
	Source    string     `json:"source"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Summary
}
