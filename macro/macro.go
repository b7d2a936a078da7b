// Package macro expands the small set of trigger-description macros the
// condition evaluator needs for TRIGGER_NAME matching (spec.md §4.1:
// "Apply trigger-description macro substitution to event.trigger.description
// first, then substring match"). Full macro expansion (item history,
// inventory fields, user macros with nested contexts) is the out-of-scope
// "macro substitution" collaborator named in spec.md §1; this is the
// resolver-backed subset a trigger description can reference directly.
package macro

import "strings"

// Resolver looks up the replacement text for one macro name (without its
// surrounding braces), returning false if the macro is unknown.
type Resolver func(name string) (string, bool)

// Expand replaces every {MACRO.NAME} occurrence in description using
// resolve. An unresolved macro is left verbatim — spec.md's TRIGGER_NAME
// semantics only need a best-effort substitution before the substring
// test, not a strict macro grammar.
func Expand(description string, resolve Resolver) string {
	var b strings.Builder
	b.Grow(len(description))

	for i := 0; i < len(description); {
		open := strings.IndexByte(description[i:], '{')
		if open < 0 {
			b.WriteString(description[i:])
			break
		}
		b.WriteString(description[i : i+open])
		start := i + open

		close := strings.IndexByte(description[start:], '}')
		if close < 0 {
			b.WriteString(description[start:])
			break
		}
		name := description[start+1 : start+close]
		if value, ok := resolve(name); ok {
			b.WriteString(value)
		} else {
			b.WriteString(description[start : start+close+1])
		}
		i = start + close + 1
	}

	return b.String()
}

// StaticResolver returns a Resolver backed by a fixed lookup table. The
// condition evaluator uses StaticResolver(nil) when it is given no
// Resolver; it does not build a table from the event's host or item data.
func StaticResolver(values map[string]string) Resolver {
	return func(name string) (string, bool) {
		v, ok := values[name]
		return v, ok
	}
}
