package commit

// Trigger identifies what asked for a commit attempt.
type Trigger int

const (
	TriggerStartup Trigger = iota
	TriggerManual
	TriggerDebounce
	TriggerPoll
	TriggerStale
	TriggerBackstop
)

var triggerNames = map[Trigger]string{
	TriggerStartup:  "startup",
	TriggerManual:   "manual",
	TriggerDebounce: "debounce",
	TriggerPoll:     "poll",
	TriggerStale:    "stale",
	TriggerBackstop: "backstop",
}

func (t Trigger) String() string {
	if name, ok := triggerNames[t]; ok {
		return name
	}
	return "unknown"
}

// Forced reports whether the attempt was forced by staleness. It only
// changes how the attempt is logged.
func (t Trigger) Forced() bool {
	return t == TriggerStale
}
