package kafka

import (
	"encoding/csv"
	"log"
	"os"
	"strconv"

	"github.com/bookdata/bdk"
	"github.com/bookdata/bdk/sample"
	"github.com/pkg/errors"
	"github.com/spf13/cast"
)

// Main holds the options for counting grouping keys from a kafka topic. The
// resulting counts file feeds the extract command's anchor selection, so the
// expensive counting pass can run over a live event stream instead of the
// review dump.
type Main struct {
	Hosts       []string `help:"Comma separated list of Kafka hosts and ports"`
	Topics      []string `help:"Comma separated list of Kafka topics"`
	Group       string   `help:"Kafka group"`
	RegistryURL string   `help:"URL of the confluent schema registry. Pass an empty string to use JSON instead of Avro."`
	GroupBy     string   `help:"Record field to count occurrences of."`
	MaxRecords  int      `help:"Stop after consuming this many records (0 means run until the topic is exhausted)."`
	CountsPath  string   `help:"File to write ranked key,count rows to."`
}

// NewMain returns a new Main.
func NewMain() *Main {
	return &Main{
		Hosts:      []string{"localhost:9092"},
		Topics:     []string{"reviews"},
		Group:      "bdk-group0",
		GroupBy:    "user_id",
		CountsPath: "counts.csv",
	}
}

// Run consumes the topic, counts the GroupBy field per record, and writes the
// ranked counts.
func (m *Main) Run() error {
	var src bdk.Source
	if m.RegistryURL == "" {
		isrc := NewSource()
		isrc.Hosts = m.Hosts
		isrc.Topics = m.Topics
		isrc.Group = m.Group
		isrc.MaxRecords = m.MaxRecords
		if err := isrc.Open(); err != nil {
			return errors.Wrap(err, "opening kafka source")
		}
		defer isrc.Close()
		src = isrc
	} else {
		isrc := NewConfluentSource()
		isrc.Hosts = m.Hosts
		isrc.Topics = m.Topics
		isrc.Group = m.Group
		isrc.MaxRecords = m.MaxRecords
		isrc.RegistryURL = m.RegistryURL
		if err := isrc.Open(); err != nil {
			return errors.Wrap(err, "opening kafka source")
		}
		defer isrc.Close()
		src = isrc
	}

	ranker, skipped, err := sample.CountSource(src, m.GroupBy, func(rec map[string]interface{}) bool {
		return cast.ToInt64(rec["rating"]) != 0
	})
	if err != nil {
		return errors.Wrap(err, "counting records")
	}
	if skipped > 0 {
		log.Printf("skipped %d unparseable records", skipped)
	}

	f, err := os.Create(m.CountsPath)
	if err != nil {
		return errors.Wrap(err, "creating counts file")
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"key", "count"}); err != nil {
		f.Close()
		return errors.Wrap(err, "writing header")
	}
	for _, kc := range ranker.Ranked() {
		if err := w.Write([]string{kc.Key, strconv.FormatInt(kc.Count, 10)}); err != nil {
			f.Close()
			return errors.Wrap(err, "writing count row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return errors.Wrap(err, "flushing counts")
	}
	log.Printf("wrote %d ranked keys to %s", ranker.Distinct(), m.CountsPath)
	return f.Close()
}
