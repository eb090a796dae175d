// Copyright 2022 The tribot Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bot

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	botIncomingElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "incoming_elements_total",
			Help:      "The total number of received elements by classification outcome.",
		},
		[]string{"name", "outcome"},
	)
	botIncomingElementDurationBucket = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "incoming_elements_duration_bucket",
			Help:      "Bucketed histogram of received elements processing duration.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 18),
		},
		[]string{"name", "outcome"},
	)
	botOutgoingElements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "outgoing_elements_total",
			Help:      "The total number of sent elements.",
		},
		[]string{"name", "element", "result"},
	)
	botHandlerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "handler_failures_total",
			Help:      "The total number of failed or panicked message handlers.",
		},
		[]string{"name"},
	)
	botReconnects = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "reconnects_total",
			Help:      "The total number of connection attempts after the first one.",
		},
		[]string{"name"},
	)
	botConnectionState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "connection_state",
			Help:      "Current connection state (0: disconnected, 1: connecting, 2: online, 3: offline).",
		},
		[]string{"name"},
	)
	botPendingIQs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "pending_iq_requests",
			Help:      "Number of iq requests waiting for a response.",
		},
		[]string{"name"},
	)
	botJoinedRooms = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tribot",
			Subsystem: "bot",
			Name:      "joined_rooms",
			Help:      "Number of rooms the bot is a confirmed member of.",
		},
		[]string{"name"},
	)
)

func init() {
	prometheus.MustRegister(botIncomingElements)
	prometheus.MustRegister(botIncomingElementDurationBucket)
	prometheus.MustRegister(botOutgoingElements)
	prometheus.MustRegister(botHandlerFailures)
	prometheus.MustRegister(botReconnects)
	prometheus.MustRegister(botConnectionState)
	prometheus.MustRegister(botPendingIQs)
	prometheus.MustRegister(botJoinedRooms)
}

func reportIncomingElement(name, outcome string, d time.Duration) {
	botIncomingElements.WithLabelValues(name, outcome).Inc()
	botIncomingElementDurationBucket.WithLabelValues(name, outcome).Observe(d.Seconds())
}

func reportOutgoingElement(name, element string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	botOutgoingElements.WithLabelValues(name, element, result).Inc()
}

func reportHandlerFailure(name string) {
	botHandlerFailures.WithLabelValues(name).Inc()
}

func reportReconnect(name string) {
	botReconnects.WithLabelValues(name).Inc()
}

func reportState(name string, st State) {
	botConnectionState.WithLabelValues(name).Set(float64(st))
}

func reportPendingIQs(name string, n int) {
	botPendingIQs.WithLabelValues(name).Set(float64(n))
}

func reportJoinedRooms(name string, n int) {
	botJoinedRooms.WithLabelValues(name).Set(float64(n))
}
