// Package replay feeds recorded ticks from a CSV file onto a market board,
// replacing the synthetic generator as the price source for offline runs.
package replay

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/tradeforge/papersim/market"
)

// Tick is one recorded quote.
type Tick struct {
	Time   time.Time
	Symbol string
	Bid    float64
	Ask    float64
}

// LoadFile parses a tick recording. The expected layout is
// "time,symbol,bid,ask" with RFC 3339 timestamps; a header row is skipped
// when the first field does not parse as a time.
func LoadFile(path string) ([]Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) ([]Tick, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4

	var ticks []Tick
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read recording: %w", err)
		}
		line++

		at, err := time.Parse(time.RFC3339, rec[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("line %d: bad timestamp %q", line, rec[0])
		}
		bid, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad bid %q", line, rec[2])
		}
		ask, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad ask %q", line, rec[3])
		}
		if rec[1] == "" || bid <= 0 || ask < bid {
			return nil, fmt.Errorf("line %d: bad tick %v", line, rec)
		}
		ticks = append(ticks, Tick{Time: at, Symbol: rec[1], Bid: bid, Ask: ask})
	}
	return ticks, nil
}

// Player replays ticks onto a board.
type Player struct {
	board *market.Board
	ticks []Tick
}

func NewPlayer(board *market.Board, ticks []Tick) *Player {
	return &Player{board: board, ticks: ticks}
}

// Run publishes the ticks in order. speed scales the recorded gaps: 1 is
// real time, 10 plays ten times faster, and 0 or less publishes everything
// immediately.
func (p *Player) Run(ctx context.Context, speed float64) error {
	var prev time.Time
	for i, t := range p.ticks {
		if speed > 0 && i > 0 {
			gap := t.Time.Sub(prev)
			if gap > 0 {
				wait := time.Duration(float64(gap) / speed)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
		}
		prev = t.Time

		p.board.Set(market.Quote{
			Symbol: t.Symbol,
			Bid:    t.Bid,
			Ask:    t.Ask,
			Time:   t.Time,
		})
	}
	return nil
}
