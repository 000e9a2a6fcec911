package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckWinnerEveryLine(t *testing.T) {
	for _, line := range winningLines {
		for _, s := range []Symbol{SymbolX, SymbolO} {
			var b Board
			for _, i := range line {
				b[i] = s
			}
			assert.Equalf(t, s, CheckWinner(b), "line %v with %s", line, s)
		}
	}
}

func TestCheckWinnerNoLine(t *testing.T) {
	full := Board{
		SymbolX, SymbolO, SymbolX,
		SymbolX, SymbolO, SymbolO,
		SymbolO, SymbolX, SymbolX,
	}
	assert.Equal(t, SymbolNone, CheckWinner(full))
	assert.True(t, full.Full())

	partial := Board{SymbolX, SymbolX, SymbolNone, SymbolO, SymbolO}
	assert.Equal(t, SymbolNone, CheckWinner(partial))
	assert.False(t, partial.Full())

	mixed := Board{SymbolX, SymbolO, SymbolX}
	assert.Equal(t, SymbolNone, CheckWinner(mixed))
}

func TestCheckWinnerEmpty(t *testing.T) {
	assert.Equal(t, SymbolNone, CheckWinner(Board{}))
}
