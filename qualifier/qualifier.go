// Package qualifier parses the configuration-ID grammar used throughout
// JIDL: a bare connection name, a "var::connection" reader reference, or a
// "var::connection<-srcVar::srcConnection" writer binding.
package qualifier

import (
	"fmt"
	"strings"
)

// Qualifier is the parsed form of one configuration ID.
type Qualifier struct {
	Var        string
	Connection string

	// HasSource is true for writer bindings ("var::connection<-src::srcConn").
	HasSource     bool
	SourceVar     string
	SourceConn    string
}

// String reconstructs the canonical textual form.
func (q Qualifier) String() string {
	if q.Connection == "" {
		return q.Var
	}
	base := q.Var + "::" + q.Connection
	if q.HasSource {
		return base + "<-" + q.SourceVar + "::" + q.SourceConn
	}
	return base
}

// Parse parses one of the three qualifier grammars defined in §3. It rejects
// ambiguous input rather than guessing: more than one "::" on either side of
// "<-", or an empty var/connection component, is an error. This resolves the
// "splitQualifier is referenced but not shown" open question by favoring a
// strict, hand-written parser over a permissive regex.
func Parse(id string) (Qualifier, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Qualifier{}, fmt.Errorf("qualifier: empty identifier")
	}

	if !strings.Contains(id, "::") {
		// Bare connection-name form.
		if strings.Contains(id, "<-") {
			return Qualifier{}, fmt.Errorf("qualifier: %q has '<-' without '::'", id)
		}
		return Qualifier{Var: id}, nil
	}

	left := id
	var srcPart string
	hasSource := false
	if idx := strings.Index(id, "<-"); idx >= 0 {
		left = id[:idx]
		srcPart = id[idx+2:]
		hasSource = true
	}

	v, c, err := splitVarConnection(left)
	if err != nil {
		return Qualifier{}, fmt.Errorf("qualifier: %q: %w", id, err)
	}

	q := Qualifier{Var: v, Connection: c}
	if hasSource {
		sv, sc, err := splitVarConnection(srcPart)
		if err != nil {
			return Qualifier{}, fmt.Errorf("qualifier: %q: source: %w", id, err)
		}
		q.HasSource = true
		q.SourceVar = sv
		q.SourceConn = sc
	}
	return q, nil
}

// splitVarConnection splits a "var::connection" fragment, rejecting anything
// other than exactly one "::" separator and two non-empty components.
func splitVarConnection(s string) (string, string, error) {
	parts := strings.Split(s, "::")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected exactly one '::' in %q, found %d", s, len(parts)-1)
	}
	v, c := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if v == "" || c == "" {
		return "", "", fmt.Errorf("empty var or connection component in %q", s)
	}
	return v, c, nil
}

// IsConnection reports whether q denotes a bare connection section.
func (q Qualifier) IsConnection() bool { return q.Connection == "" }

// IsReader reports whether q denotes a reader ("var::connection", no source).
func (q Qualifier) IsReader() bool { return q.Connection != "" && !q.HasSource }

// IsWriter reports whether q denotes a writer binding.
func (q Qualifier) IsWriter() bool { return q.Connection != "" && q.HasSource }
