/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package board lays trivia categories out as a fixed grid of clickable cells.
package board

import (
	"errors"
	"fmt"
	"html/template"
	"io"

	"github.com/google/uuid"

	"github.com/Seednode/jeopardy/trivia"
)

const (
	Width  = 6
	Height = 5
)

var (
	ErrDimensions = errors.New("wrong number of categories")
	ErrOutOfRange = errors.New("cell out of range")
)

type CellState int

const (
	Hidden CellState = iota
	Question
	Answer
)

func (s CellState) String() string {
	switch s {
	case Question:
		return "question"
	case Answer:
		return "answer"
	default:
		return "hidden"
	}
}

type Cell struct {
	Row      int
	Col      int
	State    CellState
	Question string
	Answer   string

	// Empty marks a slot the category had no clue for.
	Empty bool
}

// Text is what the browser shows for the cell in its current state.
func (c Cell) Text() string {
	if c.Empty {
		return ""
	}

	switch c.State {
	case Question:
		return c.Question
	case Answer:
		return c.Answer
	default:
		return "?"
	}
}

// Class is the css class the browser styles the cell with.
func (c Cell) Class() string {
	if c.Empty {
		return "empty"
	}

	return c.State.String()
}

// Board is one round's grid. It is not safe for concurrent use.
type Board struct {
	ID     string
	Titles []string

	cells [Height][Width]Cell
}

// New builds a board with every cell hidden. Categories with fewer than
// Height clues leave their trailing cells empty; extra clues are ignored.
func New(categories []trivia.Category) (*Board, error) {
	if len(categories) != Width {
		return nil, fmt.Errorf("%w: need %d, got %d", ErrDimensions, Width, len(categories))
	}

	b := &Board{
		ID:     uuid.NewString(),
		Titles: make([]string, 0, Width),
	}

	for col, category := range categories {
		b.Titles = append(b.Titles, category.Title)

		for row := range Height {
			cell := Cell{Row: row, Col: col}

			if row < len(category.Clues) {
				cell.Question = category.Clues[row].Question
				cell.Answer = category.Clues[row].Answer
			} else {
				cell.Empty = true
			}

			b.cells[row][col] = cell
		}
	}

	return b, nil
}

func (b *Board) Cell(row, col int) (Cell, error) {
	if row < 0 || row >= Height || col < 0 || col >= Width {
		return Cell{}, fmt.Errorf("%w: row %d, col %d", ErrOutOfRange, row, col)
	}

	return b.cells[row][col], nil
}

// Reveal advances a cell one step: hidden to question, question to answer.
// Answer and empty cells are left alone and report changed as false.
func (b *Board) Reveal(row, col int) (Cell, bool, error) {
	cell, err := b.Cell(row, col)
	if err != nil {
		return Cell{}, false, err
	}

	if cell.Empty || cell.State == Answer {
		return cell, false, nil
	}

	cell.State++
	b.cells[row][col] = cell

	return cell, true, nil
}

// Rows returns a copy of the grid, row by row.
func (b *Board) Rows() [][]Cell {
	rows := make([][]Cell, Height)
	for row := range Height {
		rows[row] = append([]Cell(nil), b.cells[row][:]...)
	}

	return rows
}

var boardTemplate = template.Must(template.New("board").Parse(
	`<table id="jeopardy" data-round="{{.ID}}">` +
		`<thead><tr>{{range .Titles}}<th>{{.}}</th>{{end}}</tr></thead>` +
		`<tbody>{{range .Rows}}<tr>{{range .}}` +
		`<td class="{{.Class}}" data-row="{{.Row}}" data-col="{{.Col}}">{{.Text}}</td>` +
		`{{end}}</tr>{{end}}</tbody></table>`))

// Render writes the full table markup for the board's current state.
func (b *Board) Render(w io.Writer) error {
	return boardTemplate.Execute(w, struct {
		ID     string
		Titles []string
		Rows   [][]Cell
	}{
		ID:     b.ID,
		Titles: b.Titles,
		Rows:   b.Rows(),
	})
}
