package ui

// Table Column Titles
const (
	ColName      = "NAME"
	ColInstance  = "INSTANCE ID"
	ColState     = "STATE"
	ColType      = "TYPE"
	ColPrivateIP = "PRIVATE IP"
	ColPublicIP  = "PUBLIC IP"
	ColZone      = "AZ"

	ColForward = "FORWARD"
	ColLocal   = "LOCAL"
	ColRemote  = "REMOTE"
	ColStatus  = "STATUS"
	ColStarted = "STARTED"
	ColReason  = "LAST REASON"
)

// Keyboard shortcuts
const (
	ShortcutRefresh = "r"
	ShortcutConsole = "c"
	ShortcutForward = "p"
	ShortcutCopy    = "y"
	ShortcutQuit    = "q"
	ShortcutAdd     = "a"
	ShortcutStart   = "s"
	ShortcutStop    = "x"
)

// Numeric Constants for Layout
const (
	MinTableHeight     = 4
	InstancesViewLines = 12 // non-table lines in the instances view
	DetailViewLines    = 10 // non-table lines in the detail view
	DetailHistoryLines = 6  // persisted transitions shown in the detail view
	ActivityLogLines   = 6
	MaxLogEntries      = 500
)

// Status display strings
const (
	StatusStopped = "Stopped"
	StatusActive  = "Active"
	StatusErrored = "Errored"
)

// Lipgloss Colors
const (
	ColorBorder     = "240"
	ColorSelectedFg = "229"
	ColorSelectedBg = "57"
	ColorTitle      = "14"  // Cyan for titles
	ColorHelp       = "245" // Grey for help text
	ColorError      = "9"   // Red for errors
	ColorStatus     = "10"  // Green for status messages
	ColorWarning    = "11"  // Yellow for warnings
	ColorDim        = "8"
)
