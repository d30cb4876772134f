package cmd

import (
	"io"
	"log"
	"time"

	"github.com/bookdata/bdk/extract"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// ExtractMain is wrapped by NewExtractCommand and only exported for testing
// purposes.
var ExtractMain *extract.Main

// NewExtractCommand returns a new cobra command wrapping ExtractMain.
func NewExtractCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	ExtractMain = extract.NewMain()
	extractCommand := &cobra.Command{
		Use:   "extract",
		Short: "extract - sample the raw dumps into consistent CSV extracts",
		Long: `Selects the most active users, keeps their reviews, and derives
the book, author, genre, interaction and user extracts so that every
identifier in the output resolves within the output.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := ExtractMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := extractCommand.Flags()
	if err := commandeer.Flags(flags, ExtractMain); err != nil {
		panic(err)
	}
	return extractCommand
}

func init() {
	subcommandFns["extract"] = NewExtractCommand
}
