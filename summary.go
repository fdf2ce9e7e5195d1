package momentum

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// Summary prints a per-cycle activity table to stdout. To access the
// raw data, use engine.History().
func (e *Engine) Summary() {
	history := e.History()
	if len(history) == 0 {
		fmt.Println("No cycles recorded.")
		return
	}

	var (
		checked int
		signals int
		opened  int
		closed  int
	)

	buffer := bytes.NewBuffer(nil)
	table := tablewriter.NewWriter(buffer)
	table.SetHeader([]string{"Cycle", "Strategies", "Signals", "Opened", "Closed"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	for i, stats := range history {
		table.Append([]string{
			strconv.Itoa(i + 1),
			strconv.Itoa(stats.StrategiesChecked),
			strconv.Itoa(stats.SignalsDetected),
			strconv.Itoa(stats.PositionsOpened),
			strconv.Itoa(stats.PositionsClosed),
		})
		checked += stats.StrategiesChecked
		signals += stats.SignalsDetected
		opened += stats.PositionsOpened
		closed += stats.PositionsClosed
	}

	table.SetFooter([]string{
		"TOTAL",
		strconv.Itoa(checked),
		strconv.Itoa(signals),
		strconv.Itoa(opened),
		strconv.Itoa(closed),
	})
	table.Render()

	fmt.Println(buffer.String())
}
