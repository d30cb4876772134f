// Package kafka provides a bdk.Source reading review and interaction events
// from Kafka topics, and a command which runs the frequency ranker over a
// topic so anchor selection can happen before a file dump exists.
package kafka

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/http"
	"sync"

	"github.com/Shopify/sarama"
	cluster "github.com/bsm/sarama-cluster"
	"github.com/bookdata/bdk"
	"github.com/elodina/go-avro"
	"github.com/pkg/errors"
)

// Source implements the bdk.Source interface reading JSON records from
// kafka.
type Source struct {
	Hosts      []string
	Topics     []string
	Group      string
	MaxRecords int

	numRecs  int
	consumer *cluster.Consumer
}

// NewSource gets a new Source with default connection settings.
func NewSource() *Source {
	return &Source{
		Hosts:  []string{"localhost:9092"},
		Topics: []string{"reviews"},
		Group:  "bdk-group0",
	}
}

// Open initializes the kafka consumer. It must be called before Record.
func (s *Source) Open() error {
	sarama.Logger = log.New(ioutil.Discard, "", 0)
	config := cluster.NewConfig()
	config.Config.Version = sarama.V0_10_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Group.Return.Notifications = true

	var err error
	s.consumer, err = cluster.NewConsumer(s.Hosts, s.Group, s.Topics, config)
	if err != nil {
		return errors.Wrap(err, "getting new consumer")
	}

	go func() {
		for err := range s.consumer.Errors() {
			log.Printf("kafka error: %s", err.Error())
		}
	}()
	go func() {
		for ntf := range s.consumer.Notifications() {
			log.Printf("kafka rebalanced: %+v", ntf)
		}
	}()
	return nil
}

// Record returns the next message's value parsed as a JSON object. A message
// which is not valid JSON yields an error caused by bdk.ErrBadRecord. Once
// MaxRecords messages have been consumed (if it is non-zero), Record returns
// io.EOF.
func (s *Source) Record() (interface{}, error) {
	msg, err := s.next()
	if err != nil {
		return nil, err
	}
	parsed := make(map[string]interface{})
	if err := json.Unmarshal(msg.Value, &parsed); err != nil {
		return nil, errors.Wrapf(bdk.ErrBadRecord, "offset %d: %v", msg.Offset, err)
	}
	return parsed, nil
}

func (s *Source) next() (*sarama.ConsumerMessage, error) {
	if s.MaxRecords > 0 {
		if s.numRecs >= s.MaxRecords {
			return nil, io.EOF
		}
		s.numRecs++
	}
	msg, ok := <-s.consumer.Messages()
	if !ok {
		return nil, io.EOF
	}
	s.consumer.MarkOffset(msg, "") // mark message as processed
	return msg, nil
}

// Close closes the underlying kafka consumer.
func (s *Source) Close() error {
	err := s.consumer.Close()
	return errors.Wrap(err, "closing kafka consumer")
}

// ConfluentSource implements bdk.Source using Kafka and the Confluent schema
// registry, for topics carrying Avro-encoded records.
type ConfluentSource struct {
	Source
	RegistryURL string
	lock        sync.RWMutex
	cache       map[int32]avro.Schema
}

// NewConfluentSource returns a new ConfluentSource.
func NewConfluentSource() *ConfluentSource {
	return &ConfluentSource{
		cache: make(map[int32]avro.Schema),
	}
}

// Record returns the next message's value decoded through the schema
// registry.
func (s *ConfluentSource) Record() (interface{}, error) {
	msg, err := s.next()
	if err != nil {
		return nil, err
	}
	rec, err := s.decodeAvroValueWithSchemaRegistry(msg.Value)
	if err != nil {
		return nil, errors.Wrapf(bdk.ErrBadRecord, "offset %d: %v", msg.Offset, err)
	}
	return rec, nil
}

func (s *ConfluentSource) decodeAvroValueWithSchemaRegistry(val []byte) (interface{}, error) {
	if len(val) <= 6 || val[0] != 0 {
		return nil, errors.Errorf("unexpected magic byte or length in avro kafka value, should be 0x00, but got 0x%.8s", val)
	}
	id := int32(binary.BigEndian.Uint32(val[1:]))
	codec, err := s.getCodec(id)
	if err != nil {
		return nil, errors.Wrap(err, "getting avro codec")
	}
	ret, err := avroDecode(codec, val[5:])
	return ret, errors.Wrap(err, "decoding avro record")
}

// registrySchema is the object produced by the schema registry.
type registrySchema struct {
	Schema  string `json:"schema"`
	Subject string `json:"subject"`
	Version int    `json:"version"`
	ID      int    `json:"id"`
}

func (s *ConfluentSource) getCodec(id int32) (rschema avro.Schema, rerr error) {
	s.lock.RLock()
	if codec, ok := s.cache[id]; ok {
		s.lock.RUnlock()
		return codec, nil
	}
	s.lock.RUnlock()
	s.lock.Lock()
	defer s.lock.Unlock()
	r, err := http.Get(fmt.Sprintf("http://%s/schemas/ids/%d", s.RegistryURL, id))
	if err != nil {
		return nil, errors.Wrap(err, "getting schema from registry")
	}
	defer func() {
		rerr = r.Body.Close()
	}()
	if r.StatusCode >= 300 {
		bod, err := ioutil.ReadAll(r.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get schema, code: %d, no body", r.StatusCode)
		}
		return nil, errors.Errorf("failed to get schema, code: %d, resp: %s", r.StatusCode, bod)
	}
	dec := json.NewDecoder(r.Body)
	schema := &registrySchema{}
	err = dec.Decode(schema)
	if err != nil {
		return nil, errors.Wrap(err, "decoding schema from registry")
	}
	codec, err := avro.ParseSchema(schema.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "parsing schema")
	}
	s.cache[id] = codec
	return codec, rerr
}

func avroDecode(codec avro.Schema, data []byte) (map[string]interface{}, error) {
	reader := avro.NewGenericDatumReader()
	reader.SetSchema(codec)
	decoder := avro.NewBinaryDecoder(data)
	decodedRecord := avro.NewGenericRecord(codec)
	if err := reader.Read(decodedRecord, decoder); err != nil {
		return nil, errors.Wrap(err, "reading generic datum")
	}
	return decodedRecord.Map(), nil
}
