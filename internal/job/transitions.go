package job

// legalTransitions maps each status to the set of statuses it may advance to.
// pending is the sole initial state; error and exported are terminal. Every
// non-terminal state may fail into error so background units always have a
// legal place to record a failure.
var legalTransitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusAnalyzing: {},
		StatusError:     {},
	},
	StatusAnalyzing: {
		StatusComplete: {},
		StatusError:    {},
	},
	StatusComplete: {
		StatusGenerated: {},
		StatusError:     {},
	},
	StatusGenerated: {
		StatusValidating: {},
		StatusError:      {},
	},
	StatusValidating: {
		StatusValidated: {},
		StatusError:     {},
	},
	StatusValidated: {
		StatusExported: {},
		StatusError:    {},
	},
	StatusExported: {},
	StatusError:    {},
}

// CanTransition reports whether advancing from one status to another is legal.
func CanTransition(from, to Status) bool {
	successors, ok := legalTransitions[from]
	if !ok {
		return false
	}
	_, ok = successors[to]
	return ok
}

// Successors returns the statuses a record may legally advance to.
func Successors(from Status) []Status {
	successors := legalTransitions[from]
	if len(successors) == 0 {
		return nil
	}
	out := make([]Status, 0, len(successors))
	for _, status := range allStatuses {
		if _, ok := successors[status]; ok {
			out = append(out, status)
		}
	}
	return out
}
