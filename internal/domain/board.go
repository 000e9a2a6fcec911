// Path: internal/domain/board.go
package domain

// Symbol is the mark a player places on the board. The empty symbol is a free cell.
type Symbol string

const (
	SymbolNone Symbol = ""
	SymbolX    Symbol = "X"
	SymbolO    Symbol = "O"
)

// BoardSize is the number of cells on a board.
const BoardSize = 9

// Board holds the cells in row-major order.
type Board [BoardSize]Symbol

var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8}, // rows
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8}, // columns
	{0, 4, 8}, {2, 4, 6}, // diagonals
}

// CheckWinner returns the symbol that fills a complete row, column or diagonal,
// or SymbolNone if there is none.
func CheckWinner(b Board) Symbol {
	for _, line := range winningLines {
		s := b[line[0]]
		if s != SymbolNone && s == b[line[1]] && s == b[line[2]] {
			return s
		}
	}
	return SymbolNone
}

// Full reports whether every cell is taken.
func (b Board) Full() bool {
	for _, s := range b {
		if s == SymbolNone {
			return false
		}
	}
	return true
}
