package extract

import "os"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Gate decides whether the extraction passes run for this process.
type Gate struct {
	Variable string
	Sentinel string
}

// DefaultGate opens on Read the Docs builders, which export READTHEDOCS=True.
func DefaultGate() Gate {
	return Gate{Variable: "READTHEDOCS", Sentinel: "True"}
}

// Open reports whether Variable is set to exactly Sentinel. Unset, empty and
// differently cased values keep the gate closed.
func (g Gate) Open(lookup LookupFunc) bool {
	if g.Variable == "" {
		return false
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}
	v, ok := lookup(g.Variable)
	return ok && v == g.Sentinel
}

// MapLookup adapts a map for tests and callers that snapshot the environment.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}
