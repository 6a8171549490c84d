package requirements

// Entry is the serialisable form of a Violation.
type Entry struct {
	Where   Where  `json:"where"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Record summarises one checked invocation for diagnostics.
type Record struct {
	Call      int     `json:"call"`
	MaxChecks int     `json:"max_checks"`
	Checked   int     `json:"checked"`
	Errors    []Entry `json:"errors"`
	Warnings  []Entry `json:"warnings"`
}

func NewRecord(call, maxChecks, checked int, res Result) Record {
	return Record{
		Call:      call,
		MaxChecks: maxChecks,
		Checked:   checked,
		Errors:    entries(res.Errors),
		Warnings:  entries(res.Warnings),
	}
}

func entries(vs []Violation) []Entry {
	out := make([]Entry, 0, len(vs))
	for _, v := range vs {
		out = append(out, Entry{Where: v.Where, Path: v.Path, Message: v.Message})
	}
	return out
}
