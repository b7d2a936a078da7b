package macro_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventaction/core/macro"
)

func TestExpandSubstitutesKnownMacros(t *testing.T) {
	resolve := macro.StaticResolver(map[string]string{
		"HOST.NAME": "db-01",
		"ITEM.NAME": "CPU load",
	})

	got := macro.Expand("{HOST.NAME}: {ITEM.NAME} is high", resolve)
	assert.Equal(t, "db-01: CPU load is high", got)
}

func TestExpandLeavesUnknownMacroVerbatim(t *testing.T) {
	resolve := macro.StaticResolver(map[string]string{"HOST.NAME": "db-01"})

	got := macro.Expand("{HOST.NAME} {UNKNOWN.THING}", resolve)
	assert.Equal(t, "db-01 {UNKNOWN.THING}", got)
}

func TestExpandWithUnterminatedBraceIsLeftAsIs(t *testing.T) {
	resolve := macro.StaticResolver(nil)
	got := macro.Expand("free text {HOST.NAME", resolve)
	assert.Equal(t, "free text {HOST.NAME", got)
}
