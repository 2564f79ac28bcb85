// internal/hub/nats.go
package hub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erilali/reactionpad/internal/logger"
	"github.com/nats-io/nats.go"
)

const (
	ResultsStream          = "RESULTS"
	resultsSubjectPrefix   = "results."
	resultsRetention       = 24 * time.Hour
	resultsFetchMaxWait    = 1 * time.Second
	resultsConsumerPrefix  = "API_RESULTS_"
	DefaultResultsFetchMax = 100
)

// ErrResultsDisabled is returned when the relay runs without JetStream.
var ErrResultsDisabled = errors.New("results stream not available")

// Result is one round result as stored in the stream.
type Result struct {
	Room      string `json:"room"`
	Result    string `json:"result"`
	Round     int64  `json:"round"`
	Timestamp int64  `json:"timestamp"`
}

// Results publishes and reads round results on JetStream.
type Results struct {
	NatsConn *nats.Conn
	Js       nats.JetStreamContext
	Logger   *logger.Logger
}

// NewResults wraps a JetStream context. A nil js yields a disabled store.
func NewResults(nc *nats.Conn, js nats.JetStreamContext, logger *logger.Logger) *Results {
	return &Results{NatsConn: nc, Js: js, Logger: logger}
}

// Enabled is safe to call on a nil *Results.
func (r *Results) Enabled() bool {
	return r != nil && r.Js != nil
}

// ResultsSubject maps a room to its subject. Characters NATS treats as token
// separators or wildcards are replaced.
func ResultsSubject(room string) string {
	clean := strings.Map(func(c rune) rune {
		switch c {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return c
	}, room)
	return resultsSubjectPrefix + clean
}

// EnsureStream creates the results stream or updates its config.
func EnsureStream(js nats.JetStreamContext, log *logger.Logger) error {
	streamConfig := &nats.StreamConfig{
		Name:     ResultsStream,
		Subjects: []string{resultsSubjectPrefix + "*"},
		Storage:  nats.FileStorage,
		MaxAge:   resultsRetention,
	}
	if _, err := js.StreamInfo(streamConfig.Name); err != nil {
		if _, err := js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("create stream %s: %w", streamConfig.Name, err)
		}
		log.Infof("Created stream: %s", streamConfig.Name)
		return nil
	}
	if _, err := js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("update stream %s: %w", streamConfig.Name, err)
	}
	log.Infof("Updated stream: %s", streamConfig.Name)
	return nil
}

// Publish stores one result.
func (r *Results) Publish(res Result) error {
	if !r.Enabled() {
		return ErrResultsDisabled
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if _, err := r.Js.Publish(ResultsSubject(res.Room), data); err != nil {
		return err
	}
	return nil
}

// List returns up to limit stored results for room, oldest first.
func (r *Results) List(room string, limit int) ([]Result, error) {
	if !r.Enabled() {
		return nil, ErrResultsDisabled
	}
	if limit <= 0 {
		limit = DefaultResultsFetchMax
	}
	subject := ResultsSubject(room)
	consumerName := fmt.Sprintf("%s%d", resultsConsumerPrefix, time.Now().UnixNano())

	_, err := r.Js.AddConsumer(ResultsStream, &nats.ConsumerConfig{
		Name:          consumerName,
		DeliverPolicy: nats.DeliverAllPolicy,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: subject,
		MaxDeliver:    1,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer %s: %w", consumerName, err)
	}
	sub, err := r.Js.PullSubscribe(subject, consumerName)
	if err != nil {
		r.Js.DeleteConsumer(ResultsStream, consumerName)
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer func() {
		if err := sub.Unsubscribe(); err != nil {
			r.Logger.Warnf("Error unsubscribing consumer %s: %v", consumerName, err)
		}
		if err := r.Js.DeleteConsumer(ResultsStream, consumerName); err != nil {
			r.Logger.Warnf("Error deleting consumer %s: %v", consumerName, err)
		}
	}()

	msgs, err := sub.Fetch(limit, nats.MaxWait(resultsFetchMaxWait))
	if err != nil && !errors.Is(err, nats.ErrTimeout) {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	results := make([]Result, 0, len(msgs))
	for _, msg := range msgs {
		var res Result
		if err := json.Unmarshal(msg.Data, &res); err != nil {
			r.Logger.Errorf("Error unmarshaling result: %v", err)
			continue
		}
		results = append(results, res)
		msg.Ack()
	}
	return results, nil
}
