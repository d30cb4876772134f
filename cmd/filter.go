package cmd

import (
	"io"
	"log"
	"time"

	"github.com/bookdata/bdk/filter"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// FilterMain is wrapped by NewFilterCommand and only exported for testing
// purposes.
var FilterMain *filter.Main

// NewFilterCommand returns a new cobra command wrapping FilterMain.
func NewFilterCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	FilterMain = filter.NewMain()
	filterCommand := &cobra.Command{
		Use:   "filter",
		Short: "filter - re-establish closure over existing extracts",
		Long: `Reads reviews.csv from an existing extract directory and drops
every dependent row which no longer resolves against it. Useful after
trimming reviews.csv by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := FilterMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := filterCommand.Flags()
	if err := commandeer.Flags(flags, FilterMain); err != nil {
		panic(err)
	}
	return filterCommand
}

func init() {
	subcommandFns["filter"] = NewFilterCommand
}
