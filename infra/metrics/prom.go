// Package metrics provides the Prometheus implementation of the core
// metrics contract.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/ubi-africa/ride-core/core/metrics"
)

// PromSink records ride dispatch events in Prometheus metrics.
type PromSink struct {
	rides      *prometheus.CounterVec
	offers     *prometheus.CounterVec
	offerWait  *prometheus.HistogramVec
	contention prometheus.Counter
}

// NewPromSink registers the ride metrics on the default Prometheus
// registerer. The metrics HTTP server is started separately.
func NewPromSink() (coremetrics.MetricsSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	rides := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_lifecycle_events_total",
		Help: "Total ride status transitions",
	}, []string{"status", "vehicle_class", "currency"})
	offers := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ride_offers_total",
		Help: "Total ride offers presented to drivers",
	}, []string{"accepted"})
	offerWait := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ride_offer_wait_seconds",
		Help:    "Time between presenting an offer and its resolution",
		Buckets: prometheus.DefBuckets,
	}, []string{"accepted"})
	contention := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "driver_lock_contention_total",
		Help: "Accept attempts that lost a driver lock race",
	})

	if err := reg.Register(rides); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			rides = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(offers); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offers = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(offerWait); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			offerWait = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(contention); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			contention = are.ExistingCollector.(prometheus.Counter)
		} else {
			return nil, err
		}
	}

	return &PromSink{rides: rides, offers: offers, offerWait: offerWait, contention: contention}, nil
}

// RecordRideLifecycle increments the lifecycle counter.
func (s *PromSink) RecordRideLifecycle(ev coremetrics.RideLifecycleEvent) error {
	s.rides.WithLabelValues(string(ev.Status), string(ev.VehicleClass), string(ev.Currency)).Inc()
	return nil
}

// RecordOffer counts the offer and observes its resolution latency.
func (s *PromSink) RecordOffer(ev coremetrics.OfferEvent) error {
	accepted := strconv.FormatBool(ev.Accepted)
	s.offers.WithLabelValues(accepted).Inc()
	s.offerWait.WithLabelValues(accepted).Observe(ev.Latency.Seconds())
	return nil
}

// RecordLockContention increments the contention counter.
func (s *PromSink) RecordLockContention(coremetrics.LockContentionEvent) error {
	s.contention.Inc()
	return nil
}
