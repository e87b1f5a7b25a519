package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ivlev/bronify/internal/engine"
)

var (
	exportSlide int
	exportAll   bool
)

var exportCmd = &cobra.Command{
	Use:   "export [deck]",
	Short: "Capture slide visuals to share cards",
	Long: `Renders the visual of a slide into a PNG card (letterboxed to the card size)
and writes it to the output directory. Without --slide the last slide with a
visual is exported, which is the share card of the default deck.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().IntVar(&exportSlide, "slide", 0, "Slide number (1-based)")
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "Export every slide that has a visual")
}

func runExport(cmd *cobra.Command, args []string) error {
	d, err := loadDeck(args)
	if err != nil {
		return err
	}

	// без звука и без предпочтительного шаринга: только файл
	c := *cfg
	c.Mute = true
	c.ShareCmd = nil
	p, err := engine.New(&c, d, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	var targets []int
	switch {
	case exportAll:
		for i, s := range d.Slides {
			if s.Visual != "" {
				targets = append(targets, i)
			}
		}
	case exportSlide > 0:
		if exportSlide > len(d.Slides) {
			return fmt.Errorf("slide %d out of range [1,%d]", exportSlide, len(d.Slides))
		}
		targets = []int{exportSlide - 1}
	default:
		for i := len(d.Slides) - 1; i >= 0; i-- {
			if d.Slides[i].Visual != "" {
				targets = []int{i}
				break
			}
		}
	}
	if len(targets) == 0 {
		return engine.ErrNoVisual
	}

	var errs []error
	for _, i := range targets {
		res, err := p.ShareSlide(cmd.Context(), i, d.Slides[i])
		if err != nil {
			fmt.Printf("[!] %s: %v\n", d.Slides[i].ID, err)
			errs = append(errs, err)
			continue
		}
		fmt.Printf("[+++] %s -> %s\n", d.Slides[i].Title(), res.Location)
	}
	return errors.Join(errs...)
}
