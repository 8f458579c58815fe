package natsapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"subway-map/internal/query"
)

// queueGroup lets several instances share the request load.
const queueGroup = "subway-map"

type Metrics interface {
	NATSRequestInc(subject string)
	NATSReplyErrInc()
	NATSSetConnected(connected bool)
}

// Connect dials NATS and keeps the connected gauge in step with the
// connection state.
func Connect(url string, m Metrics, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("subway-map"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return nc, nil
}

// Responder answers queries sent as NATS requests:
//
//	<prefix>.transfers  {}                                  -> TransfersResponse
//	<prefix>.nearby     {"station":..,"maxDistanceKm":..}   -> NearbyResponse
//	<prefix>.paths      {"from":..,"to":..}                 -> PathsResponse
//
// Failures are answered with an ErrorResponse.
type Responder struct {
	nc          *nats.Conn
	engine      *query.Engine
	prefix      string
	logSubjects bool
	metrics     Metrics
	logger      *slog.Logger

	subs []*nats.Subscription
}

func NewResponder(nc *nats.Conn, engine *query.Engine, prefix string, logSubjects bool, m Metrics, logger *slog.Logger) *Responder {
	return &Responder{
		nc:          nc,
		engine:      engine,
		prefix:      strings.TrimSuffix(prefix, "."),
		logSubjects: logSubjects,
		metrics:     m,
		logger:      logger,
	}
}

func (r *Responder) Subject(op string) string { return r.prefix + "." + op }

// Start subscribes to the query subjects.
func (r *Responder) Start() error {
	for _, op := range []string{query.OpTransfers, query.OpNearby, query.OpPaths} {
		sub, err := r.nc.QueueSubscribe(r.Subject(op), queueGroup, r.onMsg)
		if err != nil {
			r.Close()
			return fmt.Errorf("subscribe %s: %w", r.Subject(op), err)
		}
		r.subs = append(r.subs, sub)
	}
	r.logger.Info("nats responder subscribed", "prefix", r.prefix)
	return nil
}

// Announce publishes the network summary on <prefix>.network.loaded.
func (r *Responder) Announce(summary query.NetworkSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.nc.Publish(r.Subject("network.loaded"), b)
}

func (r *Responder) Close() {
	for _, sub := range r.subs {
		_ = sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *Responder) onMsg(msg *nats.Msg) {
	if r.logSubjects {
		r.logger.Debug("nats request", "subject", msg.Subject)
	}
	if r.metrics != nil {
		r.metrics.NATSRequestInc(msg.Subject)
	}
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(r.Handle(msg.Subject, msg.Data)); err != nil {
		if r.metrics != nil {
			r.metrics.NATSReplyErrInc()
		}
		r.logger.Error("nats respond failed", "subject", msg.Subject, "error", err)
	}
}

var errUnknownSubject = errors.New("unknown subject")

// Handle evaluates one request body for subject and returns the JSON reply.
func (r *Responder) Handle(subject string, data []byte) []byte {
	op := strings.TrimPrefix(subject, r.prefix+".")

	var (
		resp any
		err  error
	)
	switch op {
	case query.OpTransfers:
		resp = query.NewTransfersResponse(r.engine.Transfers())
	case query.OpNearby:
		var req query.NearbyRequest
		if err = decode(data, &req); err == nil {
			var found []query.Neighbor
			if found, err = r.engine.Nearby(req.Station, req.MaxDistanceKm); err == nil {
				resp = query.NewNearbyResponse(req.Station, req.MaxDistanceKm, found)
			}
		}
	case query.OpPaths:
		var req query.PathsRequest
		if err = decode(data, &req); err == nil {
			var paths [][]string
			if paths, err = r.engine.Paths(req.From, req.To); err == nil {
				resp = query.NewPathsResponse(req.From, req.To, paths)
			}
		}
	default:
		err = fmt.Errorf("%w: %s", errUnknownSubject, subject)
	}

	if err != nil {
		resp = query.NewErrorResponse(err)
	}
	b, mErr := json.Marshal(resp)
	if mErr != nil {
		b, _ = json.Marshal(query.NewErrorResponse(mErr))
	}
	return b
}

func decode(data []byte, v any) error {
	if len(data) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
