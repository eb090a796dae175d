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

package heartbeat

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	heartbeatRoundTrip = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "tribot",
			Subsystem: "heartbeat",
			Name:      "round_trip_seconds",
			Help:      "Bucketed histogram of server ping round trip time.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
	heartbeatResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tribot",
			Subsystem: "heartbeat",
			Name:      "pings_total",
			Help:      "The total number of server pings by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(heartbeatRoundTrip)
	prometheus.MustRegister(heartbeatResults)
}

func reportPong(rtt time.Duration) {
	heartbeatRoundTrip.Observe(rtt.Seconds())
	heartbeatResults.WithLabelValues("success").Inc()
}

func reportPingFailure(result string) {
	heartbeatResults.WithLabelValues(result).Inc()
}
