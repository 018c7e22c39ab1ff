package protocol

import "strconv"

// StepID identifies one unit of reported work. It is assigned by the wrapped
// process and carries no ordering guarantee.
type StepID uint64

func (id StepID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Verbosity is the level attached to messages and activities.
type Verbosity uint8

const (
	LevelError Verbosity = iota
	LevelWarn
	LevelNotice
	LevelInfo
	LevelTalkative
	LevelChatty
	LevelDebug
	LevelVomit
)

// ActionKind is the activity type announced by a Start event.
type ActionKind uint64

const (
	ActionUnknown       ActionKind = 0
	ActionCopyPath      ActionKind = 100
	ActionFileTransfer  ActionKind = 101
	ActionRealise       ActionKind = 102
	ActionCopyPaths     ActionKind = 103
	ActionBuilds        ActionKind = 104
	ActionBuild         ActionKind = 105
	ActionOptimiseStore ActionKind = 106
	ActionVerifyPaths   ActionKind = 107
	ActionSubstitute    ActionKind = 108
	ActionQueryPathInfo ActionKind = 109
	ActionPostBuildHook ActionKind = 110
	ActionBuildWaiting  ActionKind = 111
)

var actionKindNames = map[ActionKind]string{
	ActionUnknown:       "unknown",
	ActionCopyPath:      "copy-path",
	ActionFileTransfer:  "file-transfer",
	ActionRealise:       "realise",
	ActionCopyPaths:     "copy-paths",
	ActionBuilds:        "builds",
	ActionBuild:         "build",
	ActionOptimiseStore: "optimise-store",
	ActionVerifyPaths:   "verify-paths",
	ActionSubstitute:    "substitute",
	ActionQueryPathInfo: "query-path-info",
	ActionPostBuildHook: "post-build-hook",
	ActionBuildWaiting:  "build-waiting",
}

// ActionKindFromCode maps a wire code to a known ActionKind. Codes this
// package does not know map to ActionUnknown.
func ActionKindFromCode(code uint64) ActionKind {
	if code > uint64(ActionBuildWaiting) {
		return ActionUnknown
	}
	kind := ActionKind(code)
	if _, ok := actionKindNames[kind]; !ok {
		return ActionUnknown
	}
	return kind
}

// Known reports whether k is one of the documented activity types.
func (k ActionKind) Known() bool {
	_, ok := actionKindNames[k]
	return ok
}

func (k ActionKind) String() string {
	if name, ok := actionKindNames[k]; ok {
		return name
	}
	return "action(" + strconv.FormatUint(uint64(k), 10) + ")"
}

// ResultType is the sub-type code of a Result event.
type ResultType uint64

const (
	ResultFileLinked       ResultType = 100
	ResultBuildLogLine     ResultType = 101
	ResultUntrustedPath    ResultType = 102
	ResultCorruptedPath    ResultType = 103
	ResultSetPhase         ResultType = 104
	ResultProgress         ResultType = 105
	ResultSetExpected      ResultType = 106
	ResultPostBuildLogLine ResultType = 107
)

// Event is one decoded protocol message: Message, Start, Result or Stop.
type Event interface {
	isEvent()
}

// Message is a free-standing log line with no correlation id.
type Message struct {
	Level Verbosity
	Text  string
}

// Start announces a new unit of work.
type Start struct {
	ID     StepID
	Parent StepID
	Level  Verbosity
	Text   string
	Kind   ActionKind
	Fields StartFields
}

// Result is an update attached to an existing unit of work.
type Result struct {
	ID     StepID
	Fields ResultFields
}

// Stop reports that the unit of work identified by ID is finished.
type Stop struct {
	ID StepID
}

func (Message) isEvent() {}
func (Start) isEvent()   {}
func (Result) isEvent()  {}
func (Stop) isEvent()    {}

// StartFields is the kind-specific payload of a Start event.
type StartFields interface {
	isStartFields()
}

// NoFields is the payload of groups and of kinds that carry nothing.
type NoFields struct{}

// CopyPathFields is the payload of ActionCopyPath.
type CopyPathFields struct {
	Path        string
	Origin      string
	Destination string
}

// FileTransferFields is the payload of ActionFileTransfer.
type FileTransferFields struct {
	Target string
}

// BuildFields is the payload of ActionBuild. V1 and V2 are passed through
// as reported; their meaning is not interpreted here.
type BuildFields struct {
	Target string
	Source string
	V1     uint64
	V2     uint64
}

// SubstituteFields is the payload of ActionSubstitute.
type SubstituteFields struct {
	Source string
	Target string
}

func (NoFields) isStartFields()           {}
func (CopyPathFields) isStartFields()     {}
func (FileTransferFields) isStartFields() {}
func (BuildFields) isStartFields()        {}
func (SubstituteFields) isStartFields()   {}

// ResultFields is the type-specific payload of a Result event.
type ResultFields interface {
	resultType() ResultType
}

// BuildLogLine is one line of build output.
type BuildLogLine struct {
	Text string
}

// SetPhase reports the current build phase.
type SetPhase struct {
	Phase string
}

// Progress reports counters for an activity. Expected == 0 means the total
// is unknown, not that the work is complete.
type Progress struct {
	Done     uint64
	Expected uint64
	Running  uint64
	Failed   uint64
}

// SetExpected announces how many sub-activities of TargetKind to expect.
// TargetKind keeps the raw wire code even when it is not a known kind.
type SetExpected struct {
	TargetKind ActionKind
	Expected   uint64
}

func (BuildLogLine) resultType() ResultType { return ResultBuildLogLine }
func (SetPhase) resultType() ResultType     { return ResultSetPhase }
func (Progress) resultType() ResultType     { return ResultProgress }
func (SetExpected) resultType() ResultType  { return ResultSetExpected }
