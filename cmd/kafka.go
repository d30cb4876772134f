package cmd

import (
	"io"
	"log"
	"time"

	"github.com/bookdata/bdk/kafka"
	"github.com/jaffee/commandeer"
	"github.com/spf13/cobra"
)

// KafkaMain is wrapped by NewKafkaCommand and only exported for testing
// purposes.
var KafkaMain *kafka.Main

// NewKafkaCommand returns a new cobra command wrapping KafkaMain.
func NewKafkaCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	KafkaMain = kafka.NewMain()
	kafkaCommand := &cobra.Command{
		Use:   "kafka",
		Short: "kafka - count grouping keys from a kafka topic",
		Long: `Consumes review events from Kafka and writes a ranked key,count
CSV. Point extract at it with --counts-file to select users without
re-reading the review dump.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			if err := KafkaMain.Run(); err != nil {
				return err
			}
			log.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := kafkaCommand.Flags()
	if err := commandeer.Flags(flags, KafkaMain); err != nil {
		panic(err)
	}
	return kafkaCommand
}

func init() {
	subcommandFns["kafka"] = NewKafkaCommand
}
