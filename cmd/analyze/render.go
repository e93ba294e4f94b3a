package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aqualyx/geoanalyze/pkg/types"
)

type jsonOutput struct {
	*types.Batch
	Extreme *types.MetalExtreme `json:"extreme,omitempty"`
}

func writeJSON(w io.Writer, b *types.Batch, ext *types.MetalExtreme) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonOutput{Batch: b, Extreme: ext})
}

var categoryColor = map[types.Category]lipgloss.Color{
	types.CategorySafe:     lipgloss.Color("10"),
	types.CategoryModerate: lipgloss.Color("11"),
	types.CategoryUnsafe:   lipgloss.Color("9"),
}

// writeTable prints one row per sample followed by the batch summary. Colours
// are only emitted when w is a terminal.
func writeTable(w io.Writer, b *types.Batch, ext *types.MetalExtreme) error {
	r := lipgloss.NewRenderer(w)

	header := []string{"Sample_ID", "HPI", "MI", "HEI", "CD", "Level"}
	rows := make([][]string, 0, len(b.Results))
	for _, res := range b.Results {
		ix := res.Indices
		rows = append(rows, []string{
			res.Record.SampleID, num(ix.HPI), num(ix.MI), num(ix.HEI), num(ix.CD), string(ix.Category),
		})
	}

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, v := range row {
			if n := lipgloss.Width(v); n > widths[i] {
				widths[i] = n
			}
		}
	}

	cell := func(i int) lipgloss.Style {
		st := r.NewStyle().Width(widths[i])
		if i > 0 && i < len(header)-1 {
			st = st.Align(lipgloss.Right)
		}
		return st
	}

	var sb strings.Builder
	line := make([]string, len(header))
	for i, h := range header {
		line[i] = cell(i).Bold(true).Render(h)
	}
	sb.WriteString(strings.Join(line, "  ") + "\n")

	for j, row := range rows {
		for i, s := range row {
			st := cell(i)
			if i == len(header)-1 {
				st = st.Foreground(categoryColor[b.Results[j].Indices.Category])
			}
			line[i] = st.Render(s)
		}
		sb.WriteString(strings.Join(line, "  ") + "\n")
	}

	s := b.Summary
	fmt.Fprintf(&sb, "\nsamples: %d  safe: %d  moderate: %d  unsafe: %d  rejected rows: %d\n",
		s.Samples, s.Counts.Safe, s.Counts.Moderate, s.Counts.Unsafe, len(b.Errors))
	fmt.Fprintf(&sb, "mean HPI: %s  max HPI: %s  mean MI: %s  mean HEI: %s  mean CD: %s  max CD: %s\n",
		num(s.MeanHPI), num(s.MaxHPI), num(s.MeanMI), num(s.MeanHEI), num(s.MeanCD), num(s.MaxCD))

	for _, e := range s.Extremes {
		writeExtreme(&sb, e)
	}
	if s.HighestShare != nil && s.LowestShare != nil {
		fmt.Fprintf(&sb, "largest share: %s %s%%  smallest share: %s %s%%\n",
			s.HighestShare.Metal, num(s.HighestShare.Percentage),
			s.LowestShare.Metal, num(s.LowestShare.Percentage))
	}
	if ext != nil {
		writeExtreme(&sb, *ext)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func writeExtreme(sb *strings.Builder, e types.MetalExtreme) {
	fmt.Fprintf(sb, "%s: highest %s (%s)  lowest %s (%s)\n",
		e.Metal, e.Highest.SampleID, num(e.Highest.Value), e.Lowest.SampleID, num(e.Lowest.Value))
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
