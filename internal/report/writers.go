package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sinclairtarget/coderank/internal/format"
	"github.com/sinclairtarget/coderank/internal/pretty"
	"github.com/sinclairtarget/coderank/internal/tally"
)

const nameWidth = 40

// One "email,name,plus,minus" record per author, no header.
func WriteCSV(w io.Writer, authors []tally.Author) error {
	cw := csv.NewWriter(w)

	for _, a := range authors {
		record := []string{
			a.Email,
			a.Name,
			strconv.Itoa(a.Plus),
			strconv.Itoa(a.Minus),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("error writing CSV record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("error flushing CSV writer: %w", err)
	}

	return nil
}

type jsonAuthor struct {
	Rank  int    `json:"rank"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Plus  int    `json:"plus"`
	Minus int    `json:"minus"`
}

func WriteJSON(w io.Writer, authors []tally.Author) error {
	rows := make([]jsonAuthor, 0, len(authors))
	for i, a := range authors {
		rows = append(rows, jsonAuthor{
			Rank:  i,
			Email: a.Email,
			Name:  a.Name,
			Plus:  a.Plus,
			Minus: a.Minus,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("error writing JSON: %w", err)
	}

	return nil
}

type TableOpts struct {
	ShowEmail bool
	Limit     int // Rows to show; zero shows all
}

// Renders the ranking as a table. The footer totals every author, including
// those cut off by the limit. Styling follows package pretty.
func WriteTable(w io.Writer, agg *tally.Aggregate, opts TableOpts) error {
	authors := agg.Ranked()
	if len(authors) == 0 {
		return nil
	}

	numFilteredOut := 0
	if opts.Limit > 0 && opts.Limit < len(authors) {
		numFilteredOut = len(authors) - opts.Limit
		authors = authors[:opts.Limit]
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Format.Footer = text.FormatDefault
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	tbl.AppendHeader(table.Row{"#", "Author", "Added", "Removed"})

	for i, a := range authors {
		author := a.Name
		if opts.ShowEmail {
			author = fmt.Sprintf("%s %s", a.Name, format.GitEmail(a.Email))
		}

		tbl.AppendRow(table.Row{
			i,
			format.Abbrev(author, nameWidth),
			pretty.Green("+" + format.Number(a.Plus)),
			pretty.Red("-" + format.Number(a.Minus)),
		})
	}

	footer := ""
	if numFilteredOut > 0 {
		footer = pretty.Dim(fmt.Sprintf("...%s more...", format.Number(numFilteredOut)))
	}

	total := agg.Total()
	tbl.AppendFooter(table.Row{
		"",
		footer,
		pretty.Bold("+" + format.Number(total.Additions)),
		pretty.Bold("-" + format.Number(total.Deletions)),
	})

	tbl.Render()
	return nil
}
