package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var journalLimit int

var journalCmd = &cobra.Command{
	Use:   "journal [session]",
	Short: "Show recorded sessions, or the events of one session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runJournal,
}

func init() {
	journalCmd.Flags().IntVarP(&journalLimit, "limit", "n", 20, "Number of sessions to list")
}

func runJournal(cmd *cobra.Command, args []string) error {
	if cfg.JournalPath == "" {
		return fmt.Errorf("journal is disabled")
	}
	j, err := openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(j)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 0 {
		sessions, err := j.Sessions(cmd.Context(), journalLimit)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, "SESSION\tSTARTED\tEVENTS")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%d\n", s.ID, s.Started.Format("2006-01-02 15:04:05"), s.Events)
		}
		return nil
	}

	events, err := j.Events(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "AT\tSLIDE\tEVENT\tFIELDS")
	for _, e := range events {
		var fields []string
		for k, v := range e.Fields {
			fields = append(fields, k+"="+v)
		}
		slide := "-"
		if e.Slide >= 0 {
			slide = fmt.Sprint(e.Slide + 1)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.At.Format("15:04:05.000"), slide, e.Name, strings.Join(fields, " "))
	}
	return nil
}
