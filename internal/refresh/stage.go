package refresh

// Stage identifies how far a refresh got.
type Stage int

const (
	StageValidate Stage = iota + 1
	StageRateLimit
	StageCredentials
	StageFetch
	StagePersist
	StageCommit
	StageDone
)

var stageNames = map[Stage]string{
	StageValidate:    "validate",
	StageRateLimit:   "rate_limit",
	StageCredentials: "credentials",
	StageFetch:       "fetch",
	StagePersist:     "persist",
	StageCommit:      "commit",
	StageDone:        "done",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}
